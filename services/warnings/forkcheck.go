package warnings

import (
	"github.com/holiman/uint256"
	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/ulogger"
	"github.com/peercoin/warnd/util"
)

// forkWarningBlocks is how many blocks' worth of proof a competing chain must
// lead the tip by before the large-work warnings are raised.
const forkWarningBlocks = 6

// ForkCondition is the outcome of CheckForkWarningConditions.
type ForkCondition int

const (
	// ForkConditionSkipped means the check did not run and the flags were left as they were.
	ForkConditionSkipped ForkCondition = iota
	ForkConditionNone
	ForkConditionLargeWorkFork
	ForkConditionLargeWorkInvalidChain
)

func (f ForkCondition) String() string {
	switch f {
	case ForkConditionSkipped:
		return "skipped"
	case ForkConditionNone:
		return "none"
	case ForkConditionLargeWorkFork:
		return "large_work_fork"
	case ForkConditionLargeWorkInvalidChain:
		return "large_work_invalid_chain"
	default:
		return "unknown"
	}
}

func (f ForkCondition) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *ForkCondition) UnmarshalText(text []byte) error {
	for c := ForkConditionSkipped; c <= ForkConditionLargeWorkInvalidChain; c++ {
		if c.String() == string(text) {
			*f = c
			return nil
		}
	}

	return errors.NewInvalidArgumentError("unknown fork condition %q", string(text))
}

// ForkState is what the validation engine knows about the chain when it asks
// for the large-work warnings to be re-evaluated.
type ForkState struct {
	// InitialBlockDownload suppresses the check, everything looks like a fork while syncing.
	InitialBlockDownload bool `json:"initialBlockDownload"`
	// TipWork is the cumulative chain work of the active tip.
	TipWork *uint256.Int `json:"tipWork"`
	// ParentWork is the chain work of the tip's parent. It is used to derive
	// TipWork when that is not given.
	ParentWork *uint256.Int `json:"parentWork"`
	// TipBlockProof is the expected work of a single block at the tip's
	// difficulty. When nil it is derived from TipBits.
	TipBlockProof *uint256.Int `json:"tipBlockProof"`
	TipBits       uint32       `json:"tipBits"`
	// BestInvalidWork is the chain work of the best chain known to be invalid, nil if there is none.
	BestInvalidWork *uint256.Int `json:"bestInvalidWork"`
	// ForkTipFound is true when the best invalid chain is a valid fork we have
	// not reorganised to, rather than a chain that breaks consensus rules.
	ForkTipFound bool `json:"forkTipFound"`
}

// CheckForkWarningConditions raises one of the large-work flags when a chain
// with substantially more work than the tip exists, and clears both otherwise.
func CheckForkWarningConditions(reg *Registry, logger ulogger.Logger, fs ForkState) ForkCondition {
	if fs.TipWork == nil && fs.ParentWork != nil {
		fs.TipWork = util.AddWork(fs.ParentWork, fs.TipBits)
	}

	if fs.InitialBlockDownload || fs.TipWork == nil {
		return ForkConditionSkipped
	}

	if !hasLargeWorkLead(fs) {
		reg.SetLargeWorkForkFound(false)
		reg.SetLargeWorkInvalidChainFound(false)

		return ForkConditionNone
	}

	if fs.ForkTipFound {
		logger.Warnf("[CheckForkWarningConditions] Warning: Large valid fork found, chain work %s vs tip %s", fs.BestInvalidWork.Dec(), fs.TipWork.Dec())
		reg.SetLargeWorkForkFound(true)

		return ForkConditionLargeWorkFork
	}

	logger.Warnf("[CheckForkWarningConditions] Warning: Found invalid chain at least ~%d blocks longer than our best chain, chain work %s vs tip %s", forkWarningBlocks, fs.BestInvalidWork.Dec(), fs.TipWork.Dec())
	reg.SetLargeWorkInvalidChainFound(true)

	return ForkConditionLargeWorkInvalidChain
}

// hasLargeWorkLead reports BestInvalidWork > TipWork + forkWarningBlocks*TipBlockProof.
// If the threshold overflows 256 bits nothing can exceed it.
func hasLargeWorkLead(fs ForkState) bool {
	if fs.BestInvalidWork == nil {
		return false
	}

	proof := fs.TipBlockProof
	if proof == nil {
		proof = util.BlockProof(fs.TipBits)
	}

	lead, overflow := new(uint256.Int).MulOverflow(proof, uint256.NewInt(forkWarningBlocks))
	if overflow {
		return false
	}

	threshold, overflow := new(uint256.Int).AddOverflow(fs.TipWork, lead)
	if overflow {
		return false
	}

	return fs.BestInvalidWork.Gt(threshold)
}
