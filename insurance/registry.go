package insurance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// AdmitMember admits member into the caller's leaf group.
func (l *Ledger) AdmitMember(caller, member common.Address) error {
	_, err := l.apply("admitMember", caller, func(tx *txn) error {
		if member == NONE {
			return tx.fail(ErrInvalidArgument, "member is the zero address")
		}
		g, err := tx.group(caller)
		if err != nil {
			return err
		}
		if g == nil {
			return tx.fail(ErrNotFound, "caller %s leads no group", caller.Hex())
		}
		if g.Level != LocalLevel {
			return tx.fail(ErrCapacity, "group at level %d does not admit members", g.Level)
		}
		existing, err := tx.membership(member)
		if err != nil {
			return err
		}
		if existing != nil {
			return tx.fail(ErrDuplicate, "%s is already a member of %s", member.Hex(), existing.Group.Hex())
		}
		if g.MemberCount >= tx.meta.Constants.MaxMembers {
			return tx.fail(ErrCapacity, "group is full with %d members", g.MemberCount)
		}

		tx.putMembership(member, &Membership{
			Group:    caller,
			JoinedAt: tx.now,
			Balance:  new(big.Int),
			Payouts:  new(big.Int),
		})
		tx.appendMember(caller, uint64(g.MemberCount), member)
		g.MemberCount++
		tx.putGroup(caller, g)
		return nil
	})
	if err == nil {
		l.log.WithFields(logrus.Fields{"group": caller.Hex(), "member": member.Hex()}).Info("Admitted member")
	}
	return err
}

// PayPremium credits value paid by an admitted member to the member and to
// the member's group, and moves the value into the ledger account.
func (l *Ledger) PayPremium(caller common.Address, value *big.Int) (*PremiumPaid, error) {
	tx, err := l.apply("premium", caller, func(tx *txn) error {
		if !positive(value) {
			return tx.fail(ErrInvalidArgument, "premium must be positive")
		}
		m, err := tx.membership(caller)
		if err != nil {
			return err
		}
		if m == nil {
			return tx.fail(ErrUnauthorized, "%s is not a member", caller.Hex())
		}
		g, err := tx.group(m.Group)
		if err != nil {
			return err
		}
		if g == nil {
			return tx.fail(ErrNotFound, "group %s of member is missing", m.Group.Hex())
		}

		m.Balance.Add(m.Balance, value)
		g.Balance.Add(g.Balance, value)
		tx.putMembership(caller, m)
		tx.putGroup(m.Group, g)
		tx.queueTransfer(caller, l.account, value)
		tx.emit(PremiumPaid{Member: caller, Value: new(big.Int).Set(value), Block: tx.now})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := tx.events[0]
	l.log.WithFields(logrus.Fields{"member": caller.Hex(), "value": value}).Info("Member paid premium")
	return &ev, nil
}

// Members returns a copy of the membership of member.
func (l *Ledger) Members(member common.Address) (*Membership, bool, error) {
	var m *Membership
	err := l.view(func(tx *txn) error {
		var err error
		m, err = tx.membership(member)
		return err
	})
	if err != nil || m == nil {
		return nil, false, err
	}
	return m.Copy(), true, nil
}

// IsMember reports whether member has been admitted anywhere in the tree.
func (l *Ledger) IsMember(member common.Address) (bool, error) {
	_, ok, err := l.Members(member)
	return ok, err
}

// GroupMember returns the index-th member admitted to a group.
func (l *Ledger) GroupMember(group common.Address, index uint64) (common.Address, error) {
	var member common.Address
	err := l.view(func(tx *txn) error {
		g, err := tx.group(group)
		if err != nil {
			return err
		}
		if g == nil {
			return fail("group_members", ErrNotFound, "no group led by %s", group.Hex())
		}
		if index >= uint64(g.MemberCount) {
			return fail("group_members", ErrNotFound, "member index %d out of range", index)
		}
		member, err = l.store.GroupMember(group, index)
		return err
	})
	return member, err
}
