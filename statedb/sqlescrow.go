package statedb

import (
	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/escrow"
	"github.com/TEENet-io/escrow-go/timelock"
)

type sqlEscrow struct {
	ID            string
	Leg           string
	OrderHash     string
	Hashlock      string
	Maker         string
	Taker         string
	Token         string
	Amount        string
	SafetyDeposit string
	Offsets       []byte
	DeployedAt    string
	RescueDelay   string
	TokenBalance  string
	NativeBalance string
	Status        string
}

func (s *sqlEscrow) encode(e *escrow.Snapshot) (*sqlEscrow, error) {
	imm := e.Immutables
	schedule, err := imm.Timelocks.Schedule()
	if err != nil {
		return nil, err
	}
	offsets, err := encodeOffsets(schedule.Offsets())
	if err != nil {
		return nil, err
	}

	s.ID = hashToStr(e.ID)
	s.Leg = e.Leg.String()
	s.OrderHash = hashToStr(imm.OrderHash)
	s.Hashlock = hashToStr(imm.Hashlock)
	s.Maker = imm.Maker.String()
	s.Taker = imm.Taker.String()
	s.Token = imm.Token.String()
	s.Amount = uint64ToStr(imm.Amount)
	s.SafetyDeposit = uint64ToStr(imm.SafetyDeposit)
	s.Offsets = offsets
	s.DeployedAt = uint64ToStr(schedule.DeployedAt())
	s.RescueDelay = uint64ToStr(e.RescueDelay)
	s.TokenBalance = uint64ToStr(e.Token)
	s.NativeBalance = uint64ToStr(e.Native)
	s.Status = string(e.Status)

	return s, nil
}

func (s *sqlEscrow) values() []interface{} {
	return []interface{}{
		s.ID, s.Leg, s.OrderHash, s.Hashlock, s.Maker, s.Taker, s.Token,
		s.Amount, s.SafetyDeposit, s.Offsets, s.DeployedAt, s.RescueDelay,
		s.TokenBalance, s.NativeBalance, s.Status,
	}
}

func (s *sqlEscrow) fields() []interface{} {
	return []interface{}{
		&s.ID, &s.Leg, &s.OrderHash, &s.Hashlock, &s.Maker, &s.Taker, &s.Token,
		&s.Amount, &s.SafetyDeposit, &s.Offsets, &s.DeployedAt, &s.RescueDelay,
		&s.TokenBalance, &s.NativeBalance, &s.Status,
	}
}

func (s *sqlEscrow) decode() (*escrow.Snapshot, error) {
	leg, err := escrow.ParseLeg(s.Leg)
	if err != nil {
		return nil, err
	}
	maker, err := agreement.ParseAddress(s.Maker)
	if err != nil {
		return nil, err
	}
	taker, err := agreement.ParseAddress(s.Taker)
	if err != nil {
		return nil, err
	}
	token, err := agreement.ParseAddress(s.Token)
	if err != nil {
		return nil, err
	}
	offsets, err := decodeOffsets(s.Offsets)
	if err != nil {
		return nil, err
	}

	var amounts [6]uint64
	for i, str := range []string{s.Amount, s.SafetyDeposit, s.DeployedAt, s.RescueDelay, s.TokenBalance, s.NativeBalance} {
		if amounts[i], err = strToUint64(str); err != nil {
			return nil, err
		}
	}
	amount, safetyDeposit, deployedAt, rescueDelay, tokenBalance, nativeBalance :=
		amounts[0], amounts[1], amounts[2], amounts[3], amounts[4], amounts[5]

	tl, err := timelock.New(offsets).WithDeployedAt(deployedAt)
	if err != nil {
		return nil, err
	}

	return &escrow.Snapshot{
		ID:  strToHash(s.ID),
		Leg: leg,
		Immutables: escrow.Immutables{
			OrderHash:     strToHash(s.OrderHash),
			Hashlock:      strToHash(s.Hashlock),
			Maker:         maker,
			Taker:         taker,
			Token:         token,
			Amount:        amount,
			SafetyDeposit: safetyDeposit,
			Timelocks:     tl,
		},
		RescueDelay: rescueDelay,
		Token:       tokenBalance,
		Native:      nativeBalance,
		Status:      escrow.Status(s.Status),
	}, nil
}
