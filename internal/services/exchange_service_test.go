package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/services"
	"github.com/baharkarakas/market-backend/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func message(err error) string {
	var se *services.Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return ""
}

// slowExchange stretches the gap between reading a row and writing it back,
// inside transactions too.
type slowExchange struct{ repo.Exchange }

func (s slowExchange) WithTx(ctx context.Context, fn func(repo.Exchange) error) error {
	return s.Exchange.WithTx(ctx, func(tx repo.Exchange) error { return fn(slowExchange{tx}) })
}

func (s slowExchange) GetDeal(ctx context.Context, id int64) (models.Deal, error) {
	d, err := s.Exchange.GetDeal(ctx, id)
	time.Sleep(5 * time.Millisecond)
	return d, err
}

func (s slowExchange) GetProposal(ctx context.Context, id int64) (models.Proposal, error) {
	p, err := s.Exchange.GetProposal(ctx, id)
	time.Sleep(5 * time.Millisecond)
	return p, err
}

// parallel runs every call at once and returns their errors in call order.
func parallel(calls ...func() error) []error {
	errs := make([]error, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = call()
		}()
	}
	wg.Wait()
	return errs
}

func succeeded(errs []error) int {
	n := 0
	for _, err := range errs {
		if err == nil {
			n++
		}
	}
	return n
}

type exchangeFixture struct {
	store      *testutil.Store
	svc        *services.ExchangeService
	client     models.User
	freelancer models.User
	other      models.User
}

func newExchangeFixture() exchangeFixture {
	s := testutil.NewStore()
	repos := s.Repos()
	return exchangeFixture{
		store:      s,
		svc:        services.NewExchangeService(repos.Exchange, nil, services.NewAuditor(repos.AuditLogs, nil)),
		client:     s.SeedUser(models.User{Email: "client@example.com", FullName: "Client", Rating: 4.5}),
		freelancer: s.SeedUser(models.User{Email: "dev@example.com", FullName: "Dev"}),
		other:      s.SeedUser(models.User{Email: "other@example.com", FullName: "Other"}),
	}
}

func (f exchangeFixture) order(maxProposals *int) models.Order {
	o, err := f.svc.CreateOrder(context.Background(), models.Order{
		ClientID: f.client.ID, Title: "Landing page", BudgetMin: ptr(100.0), BudgetMax: ptr(500.0), MaxProposals: maxProposals,
	})
	So(err, ShouldBeNil)
	return o
}

func (f exchangeFixture) propose(orderID, freelancerID int64, price float64) models.Proposal {
	p, err := f.svc.SubmitProposal(context.Background(), models.Proposal{OrderID: orderID, FreelancerID: freelancerID, Price: price})
	So(err, ShouldBeNil)
	return p
}

func TestOrders(t *testing.T) {
	Convey("Given a client", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()

		Convey("a new order is open and carries the client rating", func() {
			o := f.order(nil)
			So(o.Status, ShouldEqual, models.OrderOpen)
			So(o.ClientRating, ShouldEqual, 4.5)
			So(f.store.AuditActions(), ShouldContain, "order:created")
		})

		Convey("an inverted budget is rejected", func() {
			_, err := f.svc.CreateOrder(ctx, models.Order{ClientID: f.client.ID, Title: "x", BudgetMin: ptr(10.0), BudgetMax: ptr(5.0)})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
		})

		Convey("an unknown client is not found", func() {
			_, err := f.svc.CreateOrder(ctx, models.Order{ClientID: 999, Title: "x"})
			So(errors.Is(err, services.ErrNotFound), ShouldBeTrue)
		})

		Convey("listing defaults to open orders", func() {
			o := f.order(nil)
			f.order(nil)
			_, err := f.svc.CancelOrder(ctx, f.client.ID, o.ID)
			So(err, ShouldBeNil)
			list, err := f.svc.ListOrders(ctx, models.OrderFilter{})
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)

			_, err = f.svc.ListOrders(ctx, models.OrderFilter{Status: "bogus"})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
		})

		Convey("only the owner can update", func() {
			o := f.order(nil)
			_, err := f.svc.UpdateOrder(ctx, f.other.ID, o.ID, models.OrderUpdate{Title: ptr("new")})
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
			_, err = f.svc.UpdateOrder(ctx, 0, o.ID, models.OrderUpdate{Title: ptr("new")})
			So(errors.Is(err, services.ErrUnauthorized), ShouldBeTrue)
			_, err = f.svc.UpdateOrder(ctx, f.client.ID, 12345, models.OrderUpdate{Title: ptr("new")})
			So(errors.Is(err, services.ErrNotFound), ShouldBeTrue)

			updated, err := f.svc.UpdateOrder(ctx, f.client.ID, o.ID, models.OrderUpdate{Title: ptr("Shop")})
			So(err, ShouldBeNil)
			So(updated.Title, ShouldEqual, "Shop")
		})

		Convey("an empty update is rejected", func() {
			o := f.order(nil)
			_, err := f.svc.UpdateOrder(ctx, f.client.ID, o.ID, models.OrderUpdate{})
			So(message(err), ShouldEqual, "No fields to update")
		})

		Convey("a client cannot move an order to in_progress by hand", func() {
			o := f.order(nil)
			_, err := f.svc.UpdateOrder(ctx, f.client.ID, o.ID, models.OrderUpdate{Status: ptr(models.OrderInProgress)})
			So(errors.Is(err, services.ErrInvalidState), ShouldBeTrue)
		})

		Convey("a cancelled order can be reopened", func() {
			o := f.order(nil)
			_, err := f.svc.CancelOrder(ctx, f.client.ID, o.ID)
			So(err, ShouldBeNil)
			reopened, err := f.svc.UpdateOrder(ctx, f.client.ID, o.ID, models.OrderUpdate{Status: ptr(models.OrderOpen)})
			So(err, ShouldBeNil)
			So(reopened.Status, ShouldEqual, models.OrderOpen)
		})
	})
}

func TestProposals(t *testing.T) {
	Convey("Given an open order", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()
		o := f.order(ptr(1))

		Convey("the client cannot bid on their own order", func() {
			_, err := f.svc.SubmitProposal(ctx, models.Proposal{OrderID: o.ID, FreelancerID: f.client.ID, Price: 200})
			So(message(err), ShouldEqual, "You cannot submit a proposal to your own order")
		})

		Convey("a freelancer can bid once", func() {
			p := f.propose(o.ID, f.freelancer.ID, 200)
			So(p.Status, ShouldEqual, models.ProposalPending)
			So(p.Currency, ShouldEqual, "RUB")

			Convey("max_proposals caps further bids", func() {
				_, err := f.svc.SubmitProposal(ctx, models.Proposal{OrderID: o.ID, FreelancerID: f.other.ID, Price: 150})
				So(message(err), ShouldEqual, "Maximum number of proposals reached")
			})

			Convey("a withdrawn bid frees the slot", func() {
				w, err := f.svc.WithdrawProposal(ctx, f.freelancer.ID, p.ID)
				So(err, ShouldBeNil)
				So(w.Status, ShouldEqual, models.ProposalWithdrawn)
				f.propose(o.ID, f.other.ID, 150)
			})

			Convey("only the author can withdraw", func() {
				_, err := f.svc.WithdrawProposal(ctx, f.other.ID, p.ID)
				So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("duplicate bids are rejected", func() {
			o2 := f.order(nil)
			f.propose(o2.ID, f.freelancer.ID, 200)
			_, err := f.svc.SubmitProposal(ctx, models.Proposal{OrderID: o2.ID, FreelancerID: f.freelancer.ID, Price: 220})
			So(message(err), ShouldEqual, "You have already submitted a proposal")
		})

		Convey("a cancelled order takes no bids", func() {
			_, err := f.svc.CancelOrder(ctx, f.client.ID, o.ID)
			So(err, ShouldBeNil)
			_, err = f.svc.SubmitProposal(ctx, models.Proposal{OrderID: o.ID, FreelancerID: f.freelancer.ID, Price: 200})
			So(errors.Is(err, services.ErrInvalidState), ShouldBeTrue)
		})

		Convey("proposal listings are enriched with the freelancer", func() {
			f.propose(o.ID, f.freelancer.ID, 200)
			list, err := f.svc.OrderProposals(ctx, o.ID)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)
			So(list[0].FreelancerName, ShouldEqual, "Dev")
		})
	})
}

func TestDealLifecycle(t *testing.T) {
	Convey("Given an order with two proposals", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()
		o := f.order(nil)
		won := f.propose(o.ID, f.freelancer.ID, 300)
		lost := f.propose(o.ID, f.other.ID, 250)

		Convey("only the client can accept", func() {
			_, err := f.svc.AcceptProposal(ctx, f.freelancer.ID, o.ID, won.ID)
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
		})

		Convey("a proposal of another order is not found", func() {
			o2 := f.order(nil)
			_, err := f.svc.AcceptProposal(ctx, f.client.ID, o2.ID, won.ID)
			So(errors.Is(err, services.ErrNotFound), ShouldBeTrue)
		})

		Convey("accepting creates a deal with the price in escrow", func() {
			d, err := f.svc.AcceptProposal(ctx, f.client.ID, o.ID, won.ID)
			So(err, ShouldBeNil)
			So(d.Status, ShouldEqual, models.DealInProgress)
			So(d.EscrowStatus, ShouldEqual, models.EscrowHolding)
			So(d.Amount, ShouldEqual, 300)
			So(d.FreelancerID, ShouldEqual, f.freelancer.ID)

			order, err := f.svc.GetOrder(ctx, o.ID, nil, "")
			So(err, ShouldBeNil)
			So(order.Status, ShouldEqual, models.OrderInProgress)

			props, err := f.svc.FreelancerProposals(ctx, f.other.ID)
			So(err, ShouldBeNil)
			So(props[0].ID, ShouldEqual, lost.ID)
			So(props[0].Status, ShouldEqual, models.ProposalRejected)

			msgs, err := f.svc.DealMessages(ctx, f.freelancer.ID, d.ID)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 1)
			So(msgs[0].IsSystem, ShouldBeTrue)
			So(msgs[0].Message, ShouldEqual, "Deal created. Proposal accepted.")

			txns := f.store.Transactions()
			So(len(txns), ShouldEqual, 1)
			So(txns[0].Type, ShouldEqual, models.TxnEscrowHold)

			Convey("the same proposal cannot be accepted twice", func() {
				_, err := f.svc.AcceptProposal(ctx, f.client.ID, o.ID, won.ID)
				So(errors.Is(err, services.ErrInvalidState), ShouldBeTrue)
			})

			Convey("outsiders cannot read it", func() {
				_, err := f.svc.GetDeal(ctx, f.other.ID, d.ID)
				So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
				_, err = f.svc.DealMessages(ctx, f.other.ID, d.ID)
				So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
			})

			Convey("completing releases the escrow to the freelancer", func() {
				_, err := f.svc.CompleteDeal(ctx, f.freelancer.ID, d.ID)
				So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)

				done, err := f.svc.CompleteDeal(ctx, f.client.ID, d.ID)
				So(err, ShouldBeNil)
				So(done.Status, ShouldEqual, models.DealCompleted)
				So(done.EscrowStatus, ShouldEqual, models.EscrowReleased)
				So(f.store.User(f.freelancer.ID).Balance, ShouldEqual, 300)

				order, _ := f.svc.GetOrder(ctx, o.ID, nil, "")
				So(order.Status, ShouldEqual, models.OrderCompleted)
				So(f.store.AuditActions(), ShouldContain, "deal:completed")

				Convey("a finished deal cannot be cancelled", func() {
					_, err := f.svc.CancelDeal(ctx, f.client.ID, d.ID)
					So(errors.Is(err, services.ErrInvalidState), ShouldBeTrue)
					So(f.store.User(f.client.ID).Balance, ShouldEqual, 0)
				})

				Convey("both sides can review each other once", func() {
					r, err := f.svc.CreateReview(ctx, models.Review{DealID: d.ID, ReviewerID: f.client.ID, RevieweeID: f.freelancer.ID, Rating: 4})
					So(err, ShouldBeNil)
					So(r.Rating, ShouldEqual, 4)
					So(f.store.User(f.freelancer.ID).Rating, ShouldEqual, 4)

					_, err = f.svc.CreateReview(ctx, models.Review{DealID: d.ID, ReviewerID: f.client.ID, RevieweeID: f.freelancer.ID, Rating: 5})
					So(message(err), ShouldEqual, "Review already submitted")

					_, err = f.svc.CreateReview(ctx, models.Review{DealID: d.ID, ReviewerID: f.freelancer.ID, RevieweeID: f.client.ID, Rating: 5})
					So(err, ShouldBeNil)

					list, err := f.svc.Reviews(ctx, f.freelancer.ID)
					So(err, ShouldBeNil)
					So(len(list), ShouldEqual, 1)
				})

				Convey("reviews must target the counterparty", func() {
					_, err := f.svc.CreateReview(ctx, models.Review{DealID: d.ID, ReviewerID: f.client.ID, RevieweeID: f.other.ID, Rating: 4})
					So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
					_, err = f.svc.CreateReview(ctx, models.Review{DealID: d.ID, ReviewerID: f.other.ID, RevieweeID: f.client.ID, Rating: 4})
					So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
				})
			})

			Convey("reviews wait for completion", func() {
				_, err := f.svc.CreateReview(ctx, models.Review{DealID: d.ID, ReviewerID: f.client.ID, RevieweeID: f.freelancer.ID, Rating: 4})
				So(message(err), ShouldEqual, "Can only review completed deals")
			})

			Convey("cancelling refunds the client", func() {
				c, err := f.svc.CancelDeal(ctx, f.client.ID, d.ID)
				So(err, ShouldBeNil)
				So(c.EscrowStatus, ShouldEqual, models.EscrowRefunded)
				So(f.store.User(f.client.ID).Balance, ShouldEqual, 300)
				So(f.store.User(f.freelancer.ID).Balance, ShouldEqual, 0)
				txns := f.store.Transactions()
				So(txns[len(txns)-1].Type, ShouldEqual, models.TxnEscrowRefund)
			})

			Convey("a problem report disputes the deal", func() {
				sender := f.freelancer.ID
				m, err := f.svc.PostDealMessage(ctx, models.DealMessage{DealID: d.ID, SenderID: &sender, Message: "client vanished", IsProblem: true})
				So(err, ShouldBeNil)
				So(m.IsSystem, ShouldBeFalse)

				deal, err := f.svc.GetDeal(ctx, f.client.ID, d.ID)
				So(err, ShouldBeNil)
				So(deal.Status, ShouldEqual, models.DealDisputed)

				msgs, _ := f.svc.DealMessages(ctx, f.client.ID, d.ID)
				So(len(msgs), ShouldEqual, 3)
				So(msgs[1].Message, ShouldEqual, "User reported a problem: client vanished")
				So(msgs[1].IsProblem, ShouldBeTrue)
				So(msgs[1].SenderID, ShouldNotBeNil)
				So(*msgs[1].SenderID, ShouldEqual, f.freelancer.ID)

				Convey("and a disputed deal can still be settled", func() {
					done, err := f.svc.CompleteDeal(ctx, f.client.ID, d.ID)
					So(err, ShouldBeNil)
					So(done.Status, ShouldEqual, models.DealCompleted)
				})
			})

			Convey("a cancelled deal frees the order for a new one", func() {
				_, err := f.svc.CancelDeal(ctx, f.client.ID, d.ID)
				So(err, ShouldBeNil)
				reopened, err := f.svc.UpdateOrder(ctx, f.client.ID, o.ID, models.OrderUpdate{Status: ptr(models.OrderOpen)})
				So(err, ShouldBeNil)
				So(reopened.Status, ShouldEqual, models.OrderOpen)

				third := f.store.SeedUser(models.User{Email: "third@example.com", FullName: "Third"})
				again := f.propose(o.ID, third.ID, 280)
				d2, err := f.svc.AcceptProposal(ctx, f.client.ID, o.ID, again.ID)
				So(err, ShouldBeNil)
				So(d2.ID, ShouldNotEqual, d.ID)
				So(d2.FreelancerID, ShouldEqual, third.ID)

				deals, err := f.svc.ListDeals(ctx, f.client.ID)
				So(err, ShouldBeNil)
				So(len(deals), ShouldEqual, 2)
			})

			Convey("empty messages are rejected", func() {
				sender := f.client.ID
				_, err := f.svc.PostDealMessage(ctx, models.DealMessage{DealID: d.ID, SenderID: &sender, Message: "  "})
				So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
			})
		})
	})

	Convey("Given a deal settled by several requests at once", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()
		svc := services.NewExchangeService(slowExchange{f.store.Repos().Exchange}, nil, services.NewAuditor(f.store.Repos().AuditLogs, nil))
		o := f.order(nil)
		p := f.propose(o.ID, f.freelancer.ID, 100)
		d, err := svc.AcceptProposal(ctx, f.client.ID, o.ID, p.ID)
		So(err, ShouldBeNil)

		errs := parallel(
			func() error { _, err := svc.CompleteDeal(ctx, f.client.ID, d.ID); return err },
			func() error { _, err := svc.CancelDeal(ctx, f.client.ID, d.ID); return err },
			func() error { _, err := svc.CompleteDeal(ctx, f.client.ID, d.ID); return err },
			func() error { _, err := svc.CancelDeal(ctx, f.client.ID, d.ID); return err },
		)

		Convey("the escrow is paid out exactly once", func() {
			So(succeeded(errs), ShouldEqual, 1)
			for _, err := range errs {
				if err != nil {
					So(errors.Is(err, services.ErrInvalidState), ShouldBeTrue)
				}
			}
			payouts := 0
			for _, txn := range f.store.Transactions() {
				if txn.Type == models.TxnEscrowRelease || txn.Type == models.TxnEscrowRefund {
					payouts++
				}
			}
			So(payouts, ShouldEqual, 1)
			So(f.store.User(f.client.ID).Balance+f.store.User(f.freelancer.ID).Balance, ShouldEqual, 100)
		})
	})

	Convey("Given a pending proposal withdrawn while it is accepted", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()
		svc := services.NewExchangeService(slowExchange{f.store.Repos().Exchange}, nil, services.NewAuditor(f.store.Repos().AuditLogs, nil))
		o := f.order(nil)
		p := f.propose(o.ID, f.freelancer.ID, 100)

		errs := parallel(
			func() error { _, err := svc.AcceptProposal(ctx, f.client.ID, o.ID, p.ID); return err },
			func() error { _, err := svc.WithdrawProposal(ctx, f.freelancer.ID, p.ID); return err },
		)

		Convey("only one of them wins", func() {
			So(succeeded(errs), ShouldEqual, 1)
			deals, _ := svc.ListDeals(ctx, f.client.ID)
			if errs[0] == nil {
				So(len(deals), ShouldEqual, 1)
			} else {
				So(len(deals), ShouldEqual, 0)
			}
		})
	})

	Convey("Given an order capped at one proposal", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()
		svc := services.NewExchangeService(slowExchange{f.store.Repos().Exchange}, nil, services.NewAuditor(f.store.Repos().AuditLogs, nil))
		o := f.order(ptr(1))
		third := f.store.SeedUser(models.User{Email: "third@example.com", FullName: "Third"})

		errs := parallel(
			func() error {
				_, err := svc.SubmitProposal(ctx, models.Proposal{OrderID: o.ID, FreelancerID: f.freelancer.ID, Price: 100})
				return err
			},
			func() error {
				_, err := svc.SubmitProposal(ctx, models.Proposal{OrderID: o.ID, FreelancerID: f.other.ID, Price: 100})
				return err
			},
			func() error {
				_, err := svc.SubmitProposal(ctx, models.Proposal{OrderID: o.ID, FreelancerID: third.ID, Price: 100})
				return err
			},
		)

		Convey("simultaneous bids respect the cap", func() {
			So(succeeded(errs), ShouldEqual, 1)
			list, _ := svc.OrderProposals(ctx, o.ID)
			So(len(list), ShouldEqual, 1)
		})
	})

	Convey("Given a deal whose payee has disappeared", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()
		o := f.order(nil)
		ghost := f.propose(o.ID, 4242, 120)
		d, err := f.svc.AcceptProposal(ctx, f.client.ID, o.ID, ghost.ID)
		So(err, ShouldBeNil)

		Convey("a failed settlement leaves nothing half done", func() {
			_, err := f.svc.CompleteDeal(ctx, f.client.ID, d.ID)
			So(err, ShouldNotBeNil)

			deal, err := f.svc.GetDeal(ctx, f.client.ID, d.ID)
			So(err, ShouldBeNil)
			So(deal.Status, ShouldEqual, models.DealInProgress)
			So(deal.EscrowStatus, ShouldEqual, models.EscrowHolding)
			So(len(f.store.Transactions()), ShouldEqual, 1)
			msgs, _ := f.svc.DealMessages(ctx, f.client.ID, d.ID)
			So(len(msgs), ShouldEqual, 1)
		})
	})
}

func TestSkills(t *testing.T) {
	Convey("Given a freelancer", t, func() {
		f := newExchangeFixture()
		ctx := context.Background()

		Convey("skills default to intermediate", func() {
			out, err := f.svc.ReplaceSkills(ctx, f.freelancer.ID, []models.Skill{{Name: "Go"}, {Name: "SQL", Level: "expert"}})
			So(err, ShouldBeNil)
			So(out[0].Level, ShouldEqual, "intermediate")
			list, err := f.svc.Skills(ctx, f.freelancer.ID)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 2)
		})

		Convey("unknown levels are rejected", func() {
			_, err := f.svc.ReplaceSkills(ctx, f.freelancer.ID, []models.Skill{{Name: "Go", Level: "guru"}})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
		})

		Convey("portfolio items need a title", func() {
			_, err := f.svc.AddPortfolioItem(ctx, models.PortfolioItem{FreelancerID: f.freelancer.ID})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
			_, err = f.svc.AddPortfolioItem(ctx, models.PortfolioItem{FreelancerID: f.freelancer.ID, Title: "Shop"})
			So(err, ShouldBeNil)
			items, _ := f.svc.Portfolio(ctx, f.freelancer.ID)
			So(len(items), ShouldEqual, 1)
		})
	})
}
