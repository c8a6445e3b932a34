package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/marketplace"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/validate"
)

type ProposalHandler struct {
	Svc    *marketplace.Service
	Events events.Publisher
	Notify *Notifications
	Log    zerolog.Logger
}

func (h *ProposalHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	projectID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.Svc.ListProposals(c.UserContext(), actor, projectID)
	if err != nil {
		return err
	}
	return ok(c, viewProposals(items))
}

func (h *ProposalHandler) ListMine(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.ListMyProposals(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, viewProposals(items))
}

func (h *ProposalHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	projectID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in marketplace.ProposalInput
	if err := bind(c, &in); err != nil {
		return err
	}

	pr, err := h.Svc.SubmitProposal(c.UserContext(), actor, projectID, in)
	if err != nil {
		return err
	}

	events.Emit(c.UserContext(), h.Events, h.Log, events.ProposalCreated, fiber.Map{
		"proposal_id":   pr.ID,
		"project_id":    pr.ProjectID,
		"freelancer_id": pr.FreelancerID,
		"bid_amount":    pr.BidAmount,
	})
	if pr.Project != nil {
		h.Notify.Send(c.UserContext(), pr.Project.ClientID, "proposal.created", fiber.Map{
			"proposal_id": pr.ID,
			"project_id":  pr.ProjectID,
			"title":       pr.Project.Title,
		})
	}
	return created(c, viewProposal(pr))
}

type decisionRequest struct {
	Status string `json:"status" validate:"required,oneof=ACCEPTED REJECTED WITHDRAWN"`
}

// Decide accepts or rejects a proposal (project owner) or withdraws it
// (the freelancer who sent it).
func (h *ProposalHandler) Decide(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	projectID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	proposalID, err := paramUUID(c, "proposalId")
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := validate.Struct(req); err != nil {
		return err
	}

	to := models.ProposalStatus(req.Status)
	pr, err := h.Svc.DecideProposal(c.UserContext(), actor, projectID, proposalID, to)
	if err != nil {
		return err
	}

	switch to {
	case models.ProposalAccepted:
		events.Emit(c.UserContext(), h.Events, h.Log, events.ProposalAccepted, fiber.Map{
			"proposal_id":   pr.ID,
			"project_id":    pr.ProjectID,
			"freelancer_id": pr.FreelancerID,
			"bid_amount":    pr.BidAmount,
		})
		fallthrough
	case models.ProposalRejected:
		h.Notify.Send(c.UserContext(), pr.FreelancerID, "proposal."+strings.ToLower(req.Status), fiber.Map{
			"proposal_id": pr.ID,
			"project_id":  pr.ProjectID,
		})
	}
	return ok(c, viewProposal(pr))
}
