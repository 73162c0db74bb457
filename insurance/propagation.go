package insurance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// PropagatePremium moves amount out of a group's balance one hop up. The
// parent receives amount / PremiumDivisor; the rounding remainder and the
// retained fraction are not attributed to any group. The root keeps its
// balance.
func (l *Ledger) PropagatePremium(caller, spokesperson common.Address, amount *big.Int) error {
	var forwarded *big.Int
	_, err := l.apply("propagatePremium", caller, func(tx *txn) error {
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if !positive(amount) {
			return tx.fail(ErrInvalidArgument, "amount must be positive")
		}
		g, err := tx.group(spokesperson)
		if err != nil {
			return err
		}
		if g == nil {
			return tx.fail(ErrNotFound, "no group led by %s", spokesperson.Hex())
		}
		if amount.Cmp(g.Balance) > 0 {
			return tx.fail(ErrInsufficientBalance, "amount %s exceeds group balance %s", amount, g.Balance)
		}
		if g.IsRoot(spokesperson) {
			forwarded = new(big.Int)
			return nil
		}
		parent, err := tx.group(g.Parent)
		if err != nil {
			return err
		}
		if parent == nil {
			return tx.fail(ErrNotFound, "parent %s is missing", g.Parent.Hex())
		}

		forwarded = new(big.Int).Div(amount, tx.meta.Params.PremiumDivisor)
		g.Balance.Sub(g.Balance, amount)
		parent.Balance.Add(parent.Balance, forwarded)
		tx.putGroup(spokesperson, g)
		tx.putGroup(g.Parent, parent)
		return nil
	})
	if err == nil {
		l.log.WithFields(logrus.Fields{
			"group":     spokesperson.Hex(),
			"amount":    amount,
			"forwarded": forwarded,
		}).Info("Propagated premium")
	}
	return err
}

// PropagatePayout moves amount / PayoutDivisor one hop down, from the
// parent of a group into the group, and adds the requested amount to the
// group's payout counter. It returns the forwarded amount.
func (l *Ledger) PropagatePayout(caller, spokesperson common.Address, amount *big.Int) (*big.Int, error) {
	var forwarded *big.Int
	_, err := l.apply("propagatePayout", caller, func(tx *txn) error {
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if !positive(amount) {
			return tx.fail(ErrInvalidArgument, "amount must be positive")
		}
		if amount.Cmp(tx.meta.Params.MaxPayout) > 0 {
			return tx.fail(ErrInsufficientBalance, "amount %s exceeds max payout %s", amount, tx.meta.Params.MaxPayout)
		}
		g, err := tx.group(spokesperson)
		if err != nil {
			return err
		}
		if g == nil {
			return tx.fail(ErrNotFound, "no group led by %s", spokesperson.Hex())
		}
		if g.IsRoot(spokesperson) {
			return tx.fail(ErrNotFound, "top group has no parent to draw from")
		}
		parent, err := tx.group(g.Parent)
		if err != nil {
			return err
		}
		if parent == nil {
			return tx.fail(ErrNotFound, "parent %s is missing", g.Parent.Hex())
		}

		forwarded = new(big.Int).Div(amount, tx.meta.Params.PayoutDivisor)
		if forwarded.Cmp(parent.Balance) > 0 {
			return tx.fail(ErrInsufficientBalance, "parent balance %s below %s", parent.Balance, forwarded)
		}
		parent.Balance.Sub(parent.Balance, forwarded)
		g.Balance.Add(g.Balance, forwarded)
		g.Payouts.Add(g.Payouts, amount)
		tx.putGroup(g.Parent, parent)
		tx.putGroup(spokesperson, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"group":     spokesperson.Hex(),
		"amount":    amount,
		"forwarded": forwarded,
	}).Info("Propagated payout")
	return forwarded, nil
}

// Payout pays amount from the caller's group to one of its members and
// transfers it to the member's account.
func (l *Ledger) Payout(caller, member common.Address, amount *big.Int) error {
	_, err := l.apply("payout", caller, func(tx *txn) error {
		if !positive(amount) {
			return tx.fail(ErrInvalidArgument, "amount must be positive")
		}
		m, err := tx.membership(member)
		if err != nil {
			return err
		}
		if m == nil {
			return tx.fail(ErrNotFound, "%s is not a member", member.Hex())
		}
		if m.Group != caller {
			return tx.fail(ErrUnauthorized, "%s does not belong to the group of %s", member.Hex(), caller.Hex())
		}
		g, err := tx.group(caller)
		if err != nil {
			return err
		}
		if g == nil {
			return tx.fail(ErrNotFound, "no group led by %s", caller.Hex())
		}

		consts := tx.meta.Constants
		if age := tx.now - m.JoinedAt; tx.now < m.JoinedAt || age < consts.WaitBlocks {
			return tx.fail(ErrTiming, "member joined at block %d, eligible from %d", m.JoinedAt, m.JoinedAt+consts.WaitBlocks)
		}
		if g.HasPaidOut && tx.now-g.LastPayoutAt < consts.WaitNextPayoutBlocks {
			return tx.fail(ErrTiming, "group paid out at block %d, next payout from %d", g.LastPayoutAt, g.LastPayoutAt+consts.WaitNextPayoutBlocks)
		}
		if amount.Cmp(tx.meta.Params.MaxPayout) > 0 {
			return tx.fail(ErrInsufficientBalance, "amount %s exceeds max payout %s", amount, tx.meta.Params.MaxPayout)
		}
		if amount.Cmp(g.Balance) > 0 {
			return tx.fail(ErrInsufficientBalance, "amount %s exceeds group balance %s", amount, g.Balance)
		}

		g.Balance.Sub(g.Balance, amount)
		g.Payouts.Add(g.Payouts, amount)
		g.LastPayoutAt = tx.now
		g.HasPaidOut = true
		m.Payouts.Add(m.Payouts, amount)
		tx.putGroup(caller, g)
		tx.putMembership(member, m)
		tx.queueTransfer(l.account, member, amount)
		return nil
	})
	if err == nil {
		l.log.WithFields(logrus.Fields{"group": caller.Hex(), "member": member.Hex(), "amount": amount}).Info("Paid out")
	}
	return err
}
