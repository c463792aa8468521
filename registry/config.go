package registry

type Config struct {
	// RescueDelay is the number of seconds after deployment from which the
	// taker may rescue funds out of an escrow.
	RescueDelay uint64
}
