package marketplace

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/testutil"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

var allStatuses = []models.ProjectStatus{
	models.ProjectDraft, models.ProjectOpen, models.ProjectInProgress, models.ProjectInReview,
	models.ProjectCompleted, models.ProjectCancelled, models.ProjectPaused,
}

func setup(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb := testutil.NewDB(t)
	return NewService(gdb, earnings.NewEarningsService()), gdb
}

func actorOf(u *models.User) models.Actor { return models.Actor{ID: u.ID, Role: u.Role} }

func proposalInput() ProposalInput {
	return ProposalInput{
		CoverLetter:   "I have delivered a dozen similar sites on time.",
		BidAmount:     450_000,
		EstimatedDays: 10,
	}
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("expected error kind %d, got %v", kind, err)
	}
}

func reloadProject(t *testing.T, gdb *gorm.DB, id uuid.UUID) models.Project {
	t.Helper()
	var p models.Project
	if err := gdb.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload project: %v", err)
	}
	return p
}

func TestCreateProjectDefaultsToDraftAndIsHiddenFromListing(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, svc.db, models.RoleClient)

	p, err := svc.CreateProject(ctx, actorOf(alice), ProjectInput{
		Title:        "Company website redesign",
		Description:  "Redesign the marketing site with a fresh look.",
		Category:     "Web-Development",
		Skills:       []string{"React", "react", " css "},
		BudgetType:   "FIXED",
		BudgetAmount: 5000,
		Currency:     "usd",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != models.ProjectDraft || p.Currency != "USD" || p.Category != "web-development" {
		t.Fatalf("unexpected project %+v", p)
	}
	if len(p.Skills) != 2 || p.Slug == "" {
		t.Fatalf("expected deduplicated skills and slug, got %v %q", p.Skills, p.Slug)
	}

	items, total, err := svc.ListOpenProjects(ctx, ProjectFilter{Paging: utils.NewPaging(1, 20)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("draft project must not be listed, got %d", total)
	}
	if _, err := svc.GetPublicProject(ctx, p.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("draft project must not be publicly visible, got %v", err)
	}
}

func TestCreateProjectRequiresClient(t *testing.T) {
	svc, _ := setup(t)
	bob := testutil.CreateUser(t, svc.db, models.RoleFreelancer)
	_, err := svc.CreateProject(context.Background(), actorOf(bob), ProjectInput{Title: "x"})
	expectKind(t, err, apperr.KindForbidden)
}

func TestListOpenProjectsFilters(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	cheap := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	pricey := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	gdb.Model(pricey).Updates(map[string]any{"budget_amount": 9_000_000, "title": "Mobile banking app"})
	testutil.CreateProject(t, gdb, alice.ID, models.ProjectPaused)

	items, total, err := svc.ListOpenProjects(ctx, ProjectFilter{Sort: "budget_high", Paging: utils.NewPaging(1, 10)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || items[0].ID != pricey.ID || items[1].ID != cheap.ID {
		t.Fatalf("unexpected listing order or count: %d", total)
	}
	if items[0].Client == nil {
		t.Fatalf("expected client preloaded")
	}

	items, total, _ = svc.ListOpenProjects(ctx, ProjectFilter{Query: "BANKING", Paging: utils.NewPaging(1, 10)})
	if total != 1 || items[0].ID != pricey.ID {
		t.Fatalf("search should match title case-insensitively, got %d", total)
	}
	_, total, _ = svc.ListOpenProjects(ctx, ProjectFilter{Max: 1_000_000, Paging: utils.NewPaging(1, 10)})
	if total != 1 {
		t.Fatalf("max budget filter: expected 1, got %d", total)
	}
}

func TestGetPublicProjectCountsViews(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetPublicProject(ctx, p.ID); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := reloadProject(t, gdb, p.ID).ViewCount; got != 3 {
		t.Fatalf("expected 3 views, got %d", got)
	}
}

func TestOwnershipRequiredForEveryState(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	mallory := testutil.CreateUser(t, gdb, models.RoleClient)
	title := "Hijacked title"

	for _, status := range allStatuses {
		p := testutil.CreateProject(t, gdb, alice.ID, status)
		_, err := svc.UpdateProject(ctx, actorOf(mallory), p.ID, ProjectPatch{Title: &title})
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s: expected forbidden update, got %v", status, err)
		}
		err = svc.DeleteProject(ctx, actorOf(mallory), p.ID)
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s: expected forbidden delete, got %v", status, err)
		}
	}
}

func TestDeleteProjectRules(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	admin := testutil.CreateUser(t, gdb, models.RoleAdmin)

	running := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	testutil.AssignFreelancer(t, gdb, running, bob.ID, models.ProjectInProgress)
	expectKind(t, svc.DeleteProject(ctx, actorOf(alice), running.ID), apperr.KindConflict)

	open := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	testutil.CreateProposal(t, gdb, open.ID, bob.ID, 100)
	if err := svc.DeleteProject(ctx, actorOf(admin), open.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	var left int64
	gdb.Model(&models.Proposal{}).Where("project_id = ?", open.ID).Count(&left)
	if left != 0 {
		t.Fatalf("proposals must be removed with the project")
	}
	expectKind(t, svc.DeleteProject(ctx, actorOf(alice), open.ID), apperr.KindNotFound)
}

func TestUpdateProjectOnlyWhileEditable(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	budget := int64(7500)

	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	updated, err := svc.UpdateProject(ctx, actorOf(alice), p.ID, ProjectPatch{BudgetAmount: &budget})
	if err != nil || updated.BudgetAmount != 7500 {
		t.Fatalf("update: %v %+v", err, updated)
	}

	done := testutil.CreateProject(t, gdb, alice.ID, models.ProjectCompleted)
	_, err = svc.UpdateProject(ctx, actorOf(alice), done.ID, ProjectPatch{BudgetAmount: &budget})
	expectKind(t, err, apperr.KindConflict)
}

func TestSubmitProposal(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)

	pr, err := svc.SubmitProposal(ctx, actorOf(bob), p.ID, proposalInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if pr.Status != models.ProposalPending || pr.Freelancer == nil || pr.Freelancer.ID != bob.ID {
		t.Fatalf("unexpected proposal %+v", pr)
	}
	if got := reloadProject(t, gdb, p.ID).ApplicantCount; got != 1 {
		t.Fatalf("expected applicant_count 1, got %d", got)
	}

	_, err = svc.SubmitProposal(ctx, actorOf(bob), p.ID, proposalInput())
	expectKind(t, err, apperr.KindConflict)
	if got := reloadProject(t, gdb, p.ID).ApplicantCount; got != 1 {
		t.Fatalf("duplicate must not increment, got %d", got)
	}
}

func TestConcurrentDuplicateProposal(t *testing.T) {
	svc, gdb := setup(t)
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitProposal(context.Background(), actorOf(bob), p.ID, proposalInput())
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one proposal and one conflict, got %d/%d", ok, conflicts)
	}
	if got := reloadProject(t, gdb, p.ID).ApplicantCount; got != 1 {
		t.Fatalf("expected applicant_count 1, got %d", got)
	}
	var rows int64
	gdb.Model(&models.Proposal{}).Where("project_id = ? AND freelancer_id = ?", p.ID, bob.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected one proposal row, got %d", rows)
	}
}

func TestTransitionProjectFollowsTable(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	for _, from := range []models.ProjectStatus{models.ProjectDraft, models.ProjectOpen, models.ProjectPaused} {
		for _, to := range allStatuses {
			p := testutil.CreateProject(t, gdb, alice.ID, from)
			_, err := svc.TransitionProject(ctx, actorOf(alice), p.ID, to)
			if CanTransition(from, to) {
				if err != nil {
					t.Fatalf("%s -> %s: %v", from, to, err)
				}
				continue
			}
			if !apperr.Is(err, apperr.KindConflict) {
				t.Fatalf("%s -> %s: expected conflict, got %v", from, to, err)
			}
		}
	}
}

func TestSubmitProposalRoleAndStatusRules(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)

	for _, role := range []models.Role{models.RoleClient, models.RoleStudent, models.RoleAdmin} {
		u := testutil.CreateUser(t, gdb, role)
		_, err := svc.SubmitProposal(ctx, actorOf(u), p.ID, proposalInput())
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", role, err)
		}
	}

	draft := testutil.CreateProject(t, gdb, alice.ID, models.ProjectDraft)
	_, err := svc.SubmitProposal(ctx, actorOf(bob), draft.ID, proposalInput())
	expectKind(t, err, apperr.KindConflict)

	_, err = svc.SubmitProposal(ctx, actorOf(bob), uuid.New(), proposalInput())
	expectKind(t, err, apperr.KindNotFound)
}

func TestAcceptProposalAssignsAndRejectsOthers(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	carol := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	winning := testutil.CreateProposal(t, gdb, p.ID, bob.ID, 400)
	losing := testutil.CreateProposal(t, gdb, p.ID, carol.ID, 300)

	_, err := svc.DecideProposal(ctx, actorOf(carol), p.ID, winning.ID, models.ProposalAccepted)
	expectKind(t, err, apperr.KindForbidden)

	got, err := svc.DecideProposal(ctx, actorOf(alice), p.ID, winning.ID, models.ProposalAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != models.ProposalAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
	project := reloadProject(t, gdb, p.ID)
	if project.Status != models.ProjectInProgress || project.FreelancerID == nil || *project.FreelancerID != bob.ID {
		t.Fatalf("project not assigned: %+v", project)
	}
	var other models.Proposal
	gdb.First(&other, "id = ?", losing.ID)
	if other.Status != models.ProposalRejected {
		t.Fatalf("competing proposal should be rejected, got %s", other.Status)
	}

	_, err = svc.DecideProposal(ctx, actorOf(alice), p.ID, losing.ID, models.ProposalAccepted)
	expectKind(t, err, apperr.KindConflict)
}

func TestWithdrawProposal(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	pr := testutil.CreateProposal(t, gdb, p.ID, bob.ID, 400)

	_, err := svc.DecideProposal(ctx, actorOf(alice), p.ID, pr.ID, models.ProposalWithdrawn)
	expectKind(t, err, apperr.KindForbidden)

	got, err := svc.DecideProposal(ctx, actorOf(bob), p.ID, pr.ID, models.ProposalWithdrawn)
	if err != nil || got.Status != models.ProposalWithdrawn {
		t.Fatalf("withdraw: %v", err)
	}
}

func TestListProposalsVisibility(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	carol := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	student := testutil.CreateUser(t, gdb, models.RoleStudent)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	testutil.CreateProposal(t, gdb, p.ID, bob.ID, 400)
	testutil.CreateProposal(t, gdb, p.ID, carol.ID, 300)

	all, err := svc.ListProposals(ctx, actorOf(alice), p.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("owner should see 2 proposals, got %d (%v)", len(all), err)
	}
	own, err := svc.ListProposals(ctx, actorOf(bob), p.ID)
	if err != nil || len(own) != 1 || own[0].FreelancerID != bob.ID {
		t.Fatalf("freelancer should see only their own proposal")
	}
	_, err = svc.ListProposals(ctx, actorOf(student), p.ID)
	expectKind(t, err, apperr.KindForbidden)
}

func TestProjectLifecycleToCompletion(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectDraft)

	if _, err := svc.TransitionProject(ctx, actorOf(alice), p.ID, models.ProjectOpen); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.TransitionProject(ctx, actorOf(alice), p.ID, models.ProjectInProgress)
	expectKind(t, err, apperr.KindConflict)

	pr, err := svc.SubmitProposal(ctx, actorOf(bob), p.ID, proposalInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.DecideProposal(ctx, actorOf(alice), p.ID, pr.ID, models.ProposalAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err = svc.TransitionProject(ctx, actorOf(alice), p.ID, models.ProjectInReview)
	expectKind(t, err, apperr.KindForbidden)
	if _, err := svc.TransitionProject(ctx, actorOf(bob), p.ID, models.ProjectInReview); err != nil {
		t.Fatalf("submit for review: %v", err)
	}
	_, err = svc.TransitionProject(ctx, actorOf(bob), p.ID, models.ProjectCompleted)
	expectKind(t, err, apperr.KindForbidden)

	res, err := svc.TransitionProject(ctx, actorOf(alice), p.ID, models.ProjectCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.Completed || res.Paid != proposalInput().BidAmount {
		t.Fatalf("expected payout of the accepted bid, got %+v", res)
	}
	if res.Project.Status != models.ProjectCompleted || res.Project.CompletedAt == nil || res.Project.TotalPaid != res.Paid {
		t.Fatalf("unexpected completed project %+v", res.Project)
	}

	var freelancer models.User
	gdb.First(&freelancer, "id = ?", bob.ID)
	if freelancer.CompletedProjects != 1 || freelancer.TotalEarned != res.Paid {
		t.Fatalf("freelancer stats not updated: %+v", freelancer)
	}
	completed, earned, err := earnings.NewEarningsService().Totals(gdb, bob.ID)
	if err != nil || completed != 1 || earned != res.Paid {
		t.Fatalf("earnings totals: %d %d %v", completed, earned, err)
	}
}

func TestTransitionTable(t *testing.T) {
	if CanTransition(models.ProjectOpen, models.ProjectInProgress) {
		t.Fatalf("OPEN -> IN_PROGRESS must go through proposal acceptance")
	}
	if CanTransition(models.ProjectCompleted, models.ProjectOpen) || CanTransition(models.ProjectCancelled, models.ProjectOpen) {
		t.Fatalf("terminal states must not transition")
	}
	if !CanTransition(models.ProjectPaused, models.ProjectOpen) || !CanTransition(models.ProjectInReview, models.ProjectInProgress) {
		t.Fatalf("expected documented transitions to be allowed")
	}
}

func TestCancelRejectsPendingProposals(t *testing.T) {
	svc, gdb := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, gdb, models.RoleClient)
	bob := testutil.CreateUser(t, gdb, models.RoleFreelancer)
	p := testutil.CreateProject(t, gdb, alice.ID, models.ProjectOpen)
	pr := testutil.CreateProposal(t, gdb, p.ID, bob.ID, 400)

	if _, err := svc.TransitionProject(ctx, actorOf(alice), p.ID, models.ProjectCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	var got models.Proposal
	gdb.First(&got, "id = ?", pr.ID)
	if got.Status != models.ProposalRejected {
		t.Fatalf("expected pending proposal rejected on cancel, got %s", got.Status)
	}
}
