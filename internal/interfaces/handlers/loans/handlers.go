package loans

import (
	"strings"
	"time"

	loansvc "library-backend/internal/application/loans"
	"library-backend/internal/application/returns"
	"library-backend/internal/domain"
	"library-backend/internal/middleware"
	"library-backend/internal/pkg/response"
	"library-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves /api/v1/loans. Domain errors are returned as-is and mapped
// to status codes by middleware.ErrorHandler.
type Handlers struct {
	Loans   *loansvc.Service
	Returns *returns.Processor
	// Location interprets plain dates (YYYY-MM-DD) in requests.
	Location *time.Location
}

type createRequest struct {
	PersonID     string `json:"personId"`
	ResourceID   string `json:"resourceId"`
	Quantity     int    `json:"quantity"`
	Observations string `json:"observations"`
}

type returnRequest struct {
	ReturnDate        string `json:"returnDate"`
	ResourceCondition string `json:"resourceCondition"`
	Observations      string `json:"observations"`
}

type lostRequest struct {
	Observations string `json:"observations"`
}

type renewRequest struct {
	DueDate string `json:"dueDate"`
}

// parseBody decodes the JSON body into v. An empty body leaves v untouched.
func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return domain.Validationf("Invalid request body")
	}
	return nil
}

// POST /api/v1/loans
func (h *Handlers) CreateLoan(c *fiber.Ctx) error {
	var req createRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	personID, err := validation.UUID("personId", req.PersonID)
	if err != nil {
		return err
	}
	resourceID, err := validation.UUID("resourceId", req.ResourceID)
	if err != nil {
		return err
	}

	in := loansvc.CreateInput{
		PersonID:     personID,
		ResourceID:   resourceID,
		Quantity:     req.Quantity,
		Observations: req.Observations,
	}
	if staff := middleware.CurrentStaff(c); staff != nil {
		in.CreatedBy = &staff.UserID
	}
	loan, err := h.Loans.CreateLoan(c.UserContext(), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Loan created successfully", loan, nil)
}

// GET /api/v1/loans/:id
func (h *Handlers) GetLoan(c *fiber.Ctx) error {
	id, err := validation.UUID("id", c.Params("id"))
	if err != nil {
		return err
	}
	loan, err := h.Loans.GetLoan(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Loan fetched successfully", loan, nil)
}

// POST /api/v1/loans/:id/return
func (h *Handlers) ReturnLoan(c *fiber.Ctx) error {
	id, err := validation.UUID("id", c.Params("id"))
	if err != nil {
		return err
	}
	var req returnRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ResourceCondition == "" {
		return domain.Validationf("resourceCondition is required")
	}
	returned, err := validation.Time("returnDate", req.ReturnDate, h.Location)
	if err != nil {
		return err
	}

	loan, err := h.Returns.Return(c.UserContext(), returns.ReturnInput{
		LoanID:       id,
		ReturnDate:   returned,
		DateOnly:     validation.IsDate(req.ReturnDate),
		Condition:    domain.ResourceCondition(strings.ToLower(req.ResourceCondition)),
		Observations: req.Observations,
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Loan returned successfully", loan, nil)
}

// POST /api/v1/loans/:id/lost
func (h *Handlers) MarkLost(c *fiber.Ctx) error {
	id, err := validation.UUID("id", c.Params("id"))
	if err != nil {
		return err
	}
	var req lostRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	loan, err := h.Returns.MarkLost(c.UserContext(), id, req.Observations)
	if err != nil {
		return err
	}
	return response.Success(c, "Loan marked as lost", loan, nil)
}

// POST /api/v1/loans/:id/renew
func (h *Handlers) RenewLoan(c *fiber.Ctx) error {
	id, err := validation.UUID("id", c.Params("id"))
	if err != nil {
		return err
	}
	var req renewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	due, err := validation.Time("dueDate", req.DueDate, h.Location)
	if err != nil {
		return err
	}
	loan, err := h.Loans.RenewLoan(c.UserContext(), id, due)
	if err != nil {
		return err
	}
	return response.Success(c, "Loan renewed successfully", loan, nil)
}

// GET /api/v1/loans
func (h *Handlers) ListLoans(c *fiber.Ctx) error {
	f, err := h.listFilter(c)
	if err != nil {
		return err
	}
	page, err := h.Loans.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.Paginated(c, "Loans fetched successfully", page.Items, response.Pagination{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *Handlers) listFilter(c *fiber.Ctx) (loansvc.ListFilter, error) {
	var f loansvc.ListFilter
	var err error

	if s := c.Query("status"); s != "" {
		st := domain.LoanStatus(s)
		if !st.Valid() {
			return f, domain.Validationf("status must be one of active, returned, lost")
		}
		f.Status = &st
	}
	if f.IsOverdue, err = validation.OptionalBool("isOverdue", c.Query("isOverdue")); err != nil {
		return f, err
	}
	if f.PersonID, err = validation.OptionalUUID("personId", c.Query("personId")); err != nil {
		return f, err
	}
	if f.ResourceID, err = validation.OptionalUUID("resourceId", c.Query("resourceId")); err != nil {
		return f, err
	}
	if f.DateFrom, err = validation.Time("dateFrom", c.Query("dateFrom"), h.Location); err != nil {
		return f, err
	}
	if f.DateTo, err = validation.Time("dateTo", c.Query("dateTo"), h.Location); err != nil {
		return f, err
	}
	// A plain dateTo covers the whole day.
	if raw := c.Query("dateTo"); f.DateTo != nil && !strings.Contains(raw, "T") {
		end := f.DateTo.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.DateTo = &end
	}
	if f.Page, err = validation.PositiveInt("page", c.Query("page"), 1); err != nil {
		return f, err
	}
	if f.Limit, err = validation.PositiveInt("limit", c.Query("limit"), loansvc.DefaultPageLimit); err != nil {
		return f, err
	}
	if err := validation.OneOf("sortBy", c.Query("sortBy"), loansvc.SortLoanDate, loansvc.SortDueDate, loansvc.SortDaysOverdue); err != nil {
		return f, err
	}
	if err := validation.OneOf("sortOrder", c.Query("sortOrder"), "asc", "desc"); err != nil {
		return f, err
	}
	f.SortBy = c.Query("sortBy", loansvc.SortLoanDate)
	f.SortDesc = c.Query("sortOrder", "desc") == "desc"
	return f, nil
}

// GET /api/v1/loans/overdue/stats
func (h *Handlers) OverdueStats(c *fiber.Ctx) error {
	stats, err := h.Loans.OverdueStats(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, "Overdue statistics fetched successfully", stats, nil)
}

// GET /api/v1/loans/eligibility/:personId
func (h *Handlers) Eligibility(c *fiber.Ctx) error {
	personID, err := validation.UUID("personId", c.Params("personId"))
	if err != nil {
		return err
	}
	d, err := h.Loans.CanBorrow(c.UserContext(), personID)
	if err != nil {
		return err
	}
	return response.Success(c, "Eligibility checked", d, nil)
}

// GET /api/v1/loans/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	sum, err := h.Loans.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, "Loan summary fetched successfully", sum, nil)
}

// Register mounts the loan routes on r. Reads need ViewLoans, changes need
// ManageLoans and marking a loan lost needs CloseLoans.
func (h *Handlers) Register(r fiber.Router, view, manage, closeLost fiber.Handler) {
	r.Get("/", view, h.ListLoans)
	r.Get("/summary", view, h.Summary)
	r.Get("/overdue/stats", view, h.OverdueStats)
	r.Get("/eligibility/:personId", view, h.Eligibility)
	r.Get("/:id", view, h.GetLoan)
	r.Post("/", manage, h.CreateLoan)
	r.Post("/:id/return", manage, h.ReturnLoan)
	r.Post("/:id/renew", manage, h.RenewLoan)
	r.Post("/:id/lost", closeLost, h.MarkLost)
}
