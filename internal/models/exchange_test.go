package models

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOrderTransitions(t *testing.T) {
	Convey("Given an open order", t, func() {
		So(OrderOpen.CanTransition(OrderInProgress), ShouldBeTrue)
		So(OrderOpen.CanTransition(OrderCancelled), ShouldBeTrue)
		So(OrderOpen.CanTransition(OrderCompleted), ShouldBeFalse)
	})
	Convey("Given a completed order nothing is allowed", t, func() {
		for _, s := range []OrderStatus{OrderOpen, OrderInProgress, OrderCancelled} {
			So(OrderCompleted.CanTransition(s), ShouldBeFalse)
		}
		So(OrderCompleted.Editable(), ShouldBeFalse)
	})
	Convey("A cancelled order may reopen", t, func() {
		So(OrderCancelled.CanTransition(OrderOpen), ShouldBeTrue)
	})
}

func TestDealTransitions(t *testing.T) {
	Convey("Given a deal in progress", t, func() {
		So(DealInProgress.CanTransition(DealCompleted), ShouldBeTrue)
		So(DealInProgress.CanTransition(DealDisputed), ShouldBeTrue)
		Convey("a disputed deal can still be settled", func() {
			So(DealDisputed.CanTransition(DealCompleted), ShouldBeTrue)
			So(DealDisputed.CanTransition(DealInProgress), ShouldBeFalse)
		})
		Convey("finished deals are terminal", func() {
			So(DealCompleted.CanTransition(DealCancelled), ShouldBeFalse)
			So(DealCancelled.CanTransition(DealCompleted), ShouldBeFalse)
		})
		Convey("only running deals hold their order", func() {
			So(DealInProgress.Open(), ShouldBeTrue)
			So(DealDisputed.Open(), ShouldBeTrue)
			So(DealCancelled.Open(), ShouldBeFalse)
			So(DealCompleted.Open(), ShouldBeFalse)
		})
	})
	Convey("Escrow is released or refunded exactly once", t, func() {
		So(EscrowHolding.CanTransition(EscrowReleased), ShouldBeTrue)
		So(EscrowReleased.CanTransition(EscrowRefunded), ShouldBeFalse)
	})
	Convey("Only pending proposals move", t, func() {
		So(ProposalPending.CanTransition(ProposalWithdrawn), ShouldBeTrue)
		So(ProposalAccepted.CanTransition(ProposalWithdrawn), ShouldBeFalse)
	})
}

func TestDealParticipants(t *testing.T) {
	Convey("Given a deal between 1 and 2", t, func() {
		d := Deal{ClientID: 1, FreelancerID: 2}
		So(d.IsParticipant(1), ShouldBeTrue)
		So(d.IsParticipant(3), ShouldBeFalse)
		So(d.Counterparty(1), ShouldEqual, 2)
		So(d.Counterparty(2), ShouldEqual, 1)
	})
}
