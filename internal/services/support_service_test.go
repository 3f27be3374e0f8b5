package services_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
	"github.com/baharkarakas/market-backend/internal/testutil"
)

func TestSupportTickets(t *testing.T) {
	Convey("Given a customer, a stranger and an agent", t, func() {
		s := testutil.NewStore()
		repos := s.Repos()
		audit := services.NewAuditor(repos.AuditLogs, nil)
		svc := services.NewSupportService(repos.Support, services.NewRoleService(repos.Roles, audit), audit)
		ctx := context.Background()

		customer := s.SeedUser(models.User{Email: "c@example.com", FullName: "Customer"})
		stranger := s.SeedUser(models.User{Email: "s@example.com", FullName: "Stranger"})
		agent := s.SeedUser(models.User{Email: "a@example.com", FullName: "Agent"})
		s.GrantRole(agent.ID, models.RoleSupport)

		ticket, err := svc.CreateTicket(ctx, models.Ticket{UserID: customer.ID, Subject: "Refund", Description: "Charged twice"})
		So(err, ShouldBeNil)
		So(ticket.Status, ShouldEqual, models.TicketOpen)
		So(ticket.Priority, ShouldEqual, "medium")
		So(ticket.Category, ShouldEqual, "other")
		So(ticket.MessagesCount, ShouldEqual, 1)

		Convey("an unknown priority is rejected", func() {
			_, err := svc.CreateTicket(ctx, models.Ticket{UserID: customer.ID, Subject: "x", Description: "y", Priority: "asap"})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
		})

		Convey("customers only see their own tickets", func() {
			_, err := svc.CreateTicket(ctx, models.Ticket{UserID: stranger.ID, Subject: "Other", Description: "Other"})
			So(err, ShouldBeNil)

			mine, err := svc.ListTickets(ctx, customer.ID, models.TicketFilter{})
			So(err, ShouldBeNil)
			So(len(mine), ShouldEqual, 1)

			all, err := svc.ListTickets(ctx, agent.ID, models.TicketFilter{})
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)

			_, err = svc.GetTicket(ctx, stranger.ID, ticket.ID)
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
		})

		Convey("internal notes are staff only", func() {
			_, err := svc.AddMessage(ctx, models.TicketMessage{TicketID: ticket.ID, UserID: customer.ID, Message: "psst", IsInternal: true})
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)

			_, err = svc.AddMessage(ctx, models.TicketMessage{TicketID: ticket.ID, UserID: agent.ID, Message: "known issue", IsInternal: true})
			So(err, ShouldBeNil)
			_, err = svc.AddMessage(ctx, models.TicketMessage{TicketID: ticket.ID, UserID: agent.ID, Message: "Refunded"})
			So(err, ShouldBeNil)

			seen, err := svc.GetTicket(ctx, customer.ID, ticket.ID)
			So(err, ShouldBeNil)
			So(len(seen.Messages), ShouldEqual, 2)

			staff, err := svc.GetTicket(ctx, agent.ID, ticket.ID)
			So(err, ShouldBeNil)
			So(len(staff.Messages), ShouldEqual, 3)
		})

		Convey("resolving stamps resolved_at", func() {
			resolved := models.TicketResolved
			out, err := svc.UpdateTicket(ctx, agent.ID, ticket.ID, models.TicketUpdate{Status: &resolved})
			So(err, ShouldBeNil)
			So(out.ResolvedAt, ShouldNotBeNil)
			So(s.AuditActions(), ShouldContain, "ticket:updated")
		})

		Convey("only staff assign tickets", func() {
			_, err := svc.UpdateTicket(ctx, customer.ID, ticket.ID, models.TicketUpdate{AssignedTo: &agent.ID})
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
			out, err := svc.UpdateTicket(ctx, agent.ID, ticket.ID, models.TicketUpdate{AssignedTo: &agent.ID})
			So(err, ShouldBeNil)
			So(*out.AssignedTo, ShouldEqual, agent.ID)
		})

		Convey("bad updates are rejected before access is checked", func() {
			bogus := models.TicketStatus("lost")
			_, err := svc.UpdateTicket(ctx, customer.ID, ticket.ID, models.TicketUpdate{Status: &bogus})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
			_, err = svc.UpdateTicket(ctx, customer.ID, ticket.ID, models.TicketUpdate{})
			So(message(err), ShouldEqual, "No fields to update")
		})
	})
}
