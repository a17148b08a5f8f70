package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// Company errors.
var (
	ErrCompanyNotFound = repository.ErrCompanyNotFound
	ErrCompanyExists   = repository.ErrCompanyExists
)

// CompanyService handles employer organisations.
type CompanyService struct {
	repo   *repository.Repository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(repo *repository.Repository, c *cache.Cache, logger *slog.Logger) *CompanyService {
	return &CompanyService{
		repo:   repo,
		cache:  c,
		logger: logger.With("component", "service.company"),
	}
}

// CompanyInput defines the editable company fields. Nil fields are left
// unchanged on update.
type CompanyInput struct {
	Name        *string
	Website     *string
	Description *string
	Location    *string
	Size        *model.CompanySize
	LogoURL     *string
}

// CreateCompany creates a company owned by the caller.
func (s *CompanyService) CreateCompany(ctx context.Context, actor *model.AuthContext, input CompanyInput) (*model.Company, error) {
	if actor.Role != model.RoleEmployer && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if input.Name == nil {
		return nil, invalid("name is required")
	}

	now := time.Now().UTC()
	company := &model.Company{
		ID:        newID(),
		OwnerID:   actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyCompanyInput(company, input); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	s.logger.Info("company created", "company_id", company.ID, "owner_id", company.OwnerID)
	return company, nil
}

// GetCompany retrieves a company by ID.
func (s *CompanyService) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	return s.repo.GetCompanyByID(ctx, id)
}

// ListCompaniesInput defines filters for listing companies.
type ListCompaniesInput struct {
	PageRequest
	Q        string
	Location string
	OwnerID  string
}

// ListCompanies returns a page of companies.
func (s *CompanyService) ListCompanies(ctx context.Context, input ListCompaniesInput) (*Page[*model.Company], error) {
	filter := repository.CompanyFilter{
		OwnerID:  input.OwnerID,
		Q:        strings.TrimSpace(input.Q),
		Location: strings.TrimSpace(input.Location),
	}
	companies, next, err := s.repo.ListCompanies(ctx, filter, input.Cursor, input.limit())
	if err != nil {
		return nil, err
	}
	return newPage(companies, next), nil
}

// UpdateCompany applies a partial update. Only the owner or an admin may
// change a company.
func (s *CompanyService) UpdateCompany(ctx context.Context, actor *model.AuthContext, id string, input CompanyInput) (*model.Company, error) {
	company, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyCompanyInput(company, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// DeleteCompany removes a company with all of its jobs.
func (s *CompanyService) DeleteCompany(ctx context.Context, actor *model.AuthContext, id string) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}

	jobIDs, err := s.companyJobIDs(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		return err
	}

	for _, jobID := range jobIDs {
		if err := s.cache.DeleteJob(ctx, jobID); err != nil {
			s.logger.Warn("failed to evict job from cache", "job_id", jobID, "error", err)
		}
	}
	s.logger.Info("company deleted", "company_id", id, "jobs_removed", len(jobIDs))
	return nil
}

// manageable loads a company the actor may modify. Companies owned by
// someone else are reported as forbidden since they are public anyway.
func (s *CompanyService) manageable(ctx context.Context, actor *model.AuthContext, id string) (*model.Company, error) {
	company, err := s.repo.GetCompanyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, company.OwnerID) {
		return nil, ErrForbidden
	}
	return company, nil
}

func (s *CompanyService) companyJobIDs(ctx context.Context, companyID string) ([]string, error) {
	var ids []string
	filter := repository.JobFilter{JobQuery: model.JobQuery{CompanyID: companyID}}
	cursor := ""
	for {
		jobs, next, err := s.repo.ListJobs(ctx, filter, cursor, maxPageSize)
		if err != nil {
			return nil, err
		}
		for _, job := range jobs {
			ids = append(ids, job.ID)
		}
		if next == "" {
			return ids, nil
		}
		cursor = next
	}
}

func applyCompanyInput(c *model.Company, input CompanyInput) error {
	if input.Name != nil {
		if err := validateLength("name", *input.Name, 2, 200); err != nil {
			return err
		}
		c.Name = strings.TrimSpace(*input.Name)
		c.Slug = model.Slugify(c.Name)
		if c.Slug == "" {
			return invalid("name must contain letters or digits")
		}
	}
	if input.Website != nil {
		if err := validateOptionalURL("website", *input.Website); err != nil {
			return err
		}
		c.Website = *input.Website
	}
	if input.Description != nil {
		if err := validateLength("description", *input.Description, 0, 10000); err != nil {
			return err
		}
		c.Description = *input.Description
	}
	if input.Location != nil {
		if err := validateLength("location", *input.Location, 0, 200); err != nil {
			return err
		}
		c.Location = strings.TrimSpace(*input.Location)
	}
	if input.Size != nil {
		if !input.Size.IsValid() {
			return invalid("size must be one of 1-10, 11-50, 51-200, 201-1000, 1000+")
		}
		c.Size = *input.Size
	}
	if input.LogoURL != nil {
		if err := validateOptionalURL("logo_url", *input.LogoURL); err != nil {
			return err
		}
		c.LogoURL = *input.LogoURL
	}
	return nil
}
