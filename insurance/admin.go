package insurance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// SetMaxPayout replaces the payout cap. A zero cap disables payouts.
func (l *Ledger) SetMaxPayout(caller common.Address, value *big.Int) error {
	_, err := l.apply("setMaxPayout", caller, func(tx *txn) error {
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if value == nil || value.Sign() < 0 {
			return tx.fail(ErrInvalidArgument, "max payout must be non-negative")
		}
		tx.setMeta(func(m *Meta) { m.Params.MaxPayout = new(big.Int).Set(value) })
		return nil
	})
	if err == nil {
		l.log.WithField("maxPayout", value).Info("Updated max payout")
	}
	return err
}

// SetParameter replaces the whole parameter block.
func (l *Ledger) SetParameter(caller common.Address, maxPayout, premiumDivisor, payoutDivisor *big.Int) error {
	params := Parameters{MaxPayout: maxPayout, PremiumDivisor: premiumDivisor, PayoutDivisor: payoutDivisor}
	_, err := l.apply("setParameter", caller, func(tx *txn) error {
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return tx.fail(ErrInvalidArgument, "%v", err)
		}
		tx.setMeta(func(m *Meta) { m.Params = params.Copy() })
		return nil
	})
	if err == nil {
		l.log.WithFields(logrus.Fields{
			"maxPayout":      maxPayout,
			"premiumDivisor": premiumDivisor,
			"payoutDivisor":  payoutDivisor,
		}).Info("Updated parameters")
	}
	return err
}

// Meta returns a copy of the owner, root, constants and parameters.
func (l *Ledger) Meta() (*Meta, error) {
	var meta *Meta
	err := l.view(func(tx *txn) error {
		meta = tx.meta.copy()
		return nil
	})
	return meta, err
}

func (l *Ledger) Owner() (common.Address, error) {
	meta, err := l.Meta()
	if err != nil {
		return NONE, err
	}
	return meta.Owner, nil
}

// RootSpokesperson returns the spokesperson of the top group, or NONE.
func (l *Ledger) RootSpokesperson() (common.Address, error) {
	meta, err := l.Meta()
	if err != nil {
		return NONE, err
	}
	return meta.Root, nil
}

func (l *Ledger) Constants() (Constants, error) {
	meta, err := l.Meta()
	if err != nil {
		return Constants{}, err
	}
	return meta.Constants, nil
}

func (l *Ledger) Parameters() (Parameters, error) {
	meta, err := l.Meta()
	if err != nil {
		return Parameters{}, err
	}
	return meta.Params, nil
}
