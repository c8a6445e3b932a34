package handlers

import (
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

// The views below shadow the embedded relations so that only public user
// fields ever leave the API.

type projectView struct {
	*models.Project
	Client     *models.UserMini `json:"client,omitempty"`
	Freelancer *models.UserMini `json:"freelancer,omitempty"`
}

func viewProject(p *models.Project) projectView {
	return projectView{Project: p, Client: p.Client.Mini(), Freelancer: p.Freelancer.Mini()}
}

func viewProjects(in []models.Project) []projectView {
	out := make([]projectView, 0, len(in))
	for i := range in {
		out = append(out, viewProject(&in[i]))
	}
	return out
}

type projectBrief struct {
	ID           uuid.UUID            `json:"id"`
	Title        string               `json:"title"`
	Status       models.ProjectStatus `json:"status"`
	BudgetAmount int64                `json:"budget_amount"`
	Currency     string               `json:"currency"`
	Client       *models.UserMini     `json:"client,omitempty"`
}

type proposalView struct {
	*models.Proposal
	Freelancer *models.PublicProfile `json:"freelancer,omitempty"`
	Project    *projectBrief         `json:"project,omitempty"`
}

func viewProposal(p *models.Proposal) proposalView {
	v := proposalView{Proposal: p}
	if p.Freelancer != nil {
		profile := p.Freelancer.Public()
		v.Freelancer = &profile
	}
	if p.Project != nil {
		v.Project = &projectBrief{
			ID:           p.Project.ID,
			Title:        p.Project.Title,
			Status:       p.Project.Status,
			BudgetAmount: p.Project.BudgetAmount,
			Currency:     p.Project.Currency,
			Client:       p.Project.Client.Mini(),
		}
	}
	return v
}

func viewProposals(in []models.Proposal) []proposalView {
	out := make([]proposalView, 0, len(in))
	for i := range in {
		out = append(out, viewProposal(&in[i]))
	}
	return out
}

type courseView struct {
	*models.Course
	Instructor *models.UserMini `json:"instructor,omitempty"`
}

func viewCourse(c *models.Course) courseView {
	return courseView{Course: c, Instructor: c.Instructor.Mini()}
}

func viewCourses(in []models.Course) []courseView {
	out := make([]courseView, 0, len(in))
	for i := range in {
		out = append(out, viewCourse(&in[i]))
	}
	return out
}

type enrollmentView struct {
	*models.Enrollment
	Course *courseView `json:"course,omitempty"`
}

func viewEnrollment(e *models.Enrollment) enrollmentView {
	v := enrollmentView{Enrollment: e}
	if e.Course != nil {
		cv := viewCourse(e.Course)
		v.Course = &cv
	}
	return v
}

func viewEnrollments(in []models.Enrollment) []enrollmentView {
	out := make([]enrollmentView, 0, len(in))
	for i := range in {
		out = append(out, viewEnrollment(&in[i]))
	}
	return out
}

type messageView struct {
	*models.Message
	Sender *models.UserMini `json:"sender,omitempty"`
}

func viewMessage(m *models.Message) messageView {
	return messageView{Message: m, Sender: m.Sender.Mini()}
}

func viewMessages(in []models.Message) []messageView {
	out := make([]messageView, 0, len(in))
	for i := range in {
		out = append(out, viewMessage(&in[i]))
	}
	return out
}
