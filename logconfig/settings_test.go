package logconfig

import (
	"testing"

	myLogger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigByLevel(t *testing.T) {
	defer ConfigProductionLogger()

	ConfigByLevel("DEBUG")
	assert.Equal(t, myLogger.DebugLevel, myLogger.GetLevel())

	ConfigByLevel(" info ")
	assert.Equal(t, myLogger.InfoLevel, myLogger.GetLevel())

	ConfigByLevel("debug")
	ConfigByLevel("whatever")
	assert.Equal(t, myLogger.InfoLevel, myLogger.GetLevel())
}
