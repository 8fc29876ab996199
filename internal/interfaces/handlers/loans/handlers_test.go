package loans

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"library-backend/internal/application/eligibility"
	loansvc "library-backend/internal/application/loans"
	"library-backend/internal/application/returns"
	"library-backend/internal/application/signals"
	"library-backend/internal/application/stock"
	"library-backend/internal/auth"
	"library-backend/internal/domain"
	"library-backend/internal/middleware"
	"library-backend/internal/pkg/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var today = time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

type handlerFixture struct {
	app *fiber.App
	db  *gorm.DB
	svc *loansvc.Service
}

func pass(c *fiber.Ctx) error { return c.Next() }

func setupLoanHandlers(t *testing.T) *handlerFixture {
	db := testdb.New(t)
	now := func() time.Time { return today }
	ledger := &stock.Ledger{DB: db}
	svc := &loansvc.Service{
		DB:     db,
		Ledger: ledger,
		Eligibility: &eligibility.Checker{
			Directory: &eligibility.GormDirectory{DB: db},
			Policy:    eligibility.Policy{MaxActiveLoans: 3},
		},
		Policy: loansvc.Policy{LoanPeriodDays: 15, MaxQuantity: 5},
		Now:    now,
	}
	proc := &returns.Processor{
		DB:          db,
		Loans:       svc,
		Stock:       ledger,
		Outbox:      &signals.Outbox{DB: db, Emitter: &signals.CatalogCallback{Catalog: ledger}},
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Now:         now,
	}
	h := &Handlers{Loans: svc, Returns: proc, Location: time.UTC}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("auth", &auth.Staff{UserID: "staff-42", Role: "librarian"})
		return c.Next()
	})
	h.Register(app.Group("/api/v1/loans"), pass, pass, pass)
	return &handlerFixture{app: app, db: db, svc: svc}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func data(out map[string]interface{}) map[string]interface{} {
	d, _ := out["data"].(map[string]interface{})
	return d
}

func errorDetails(out map[string]interface{}) map[string]interface{} {
	e, _ := out["error"].(map[string]interface{})
	d, _ := e["details"].(map[string]interface{})
	return d
}

func TestCreateLoan_Created(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 3, 3)

	code, out := f.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"personId":   person.PersonID.String(),
		"resourceId": res.ResourceID.String(),
		"quantity":   2,
	})
	require.Equal(t, fiber.StatusCreated, code, out)
	d := data(out)
	assert.Equal(t, "active", d["status"])
	assert.Equal(t, float64(2), d["quantity"])
	assert.Equal(t, "staff-42", d["createdBy"])
	assert.Equal(t, false, d["isOverdue"])
	assert.Equal(t, 1, testdb.Reload(t, f.db, res.ResourceID).AvailableQuantity)
}

func TestCreateLoan_ErrorStatuses(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 1, 1)

	code, _ := f.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"personId": "nope", "resourceId": res.ResourceID.String(), "quantity": 1,
	})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"personId": person.PersonID.String(), "resourceId": res.ResourceID.String(), "quantity": 0,
	})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out := f.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"personId": person.PersonID.String(), "resourceId": res.ResourceID.String(), "quantity": 2,
	})
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorDetails(out)["code"])

	code, _ = f.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"personId": person.PersonID.String(), "resourceId": uuid.New().String(), "quantity": 1,
	})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestCreateLoan_IneligibleReason(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 10, 10)
	for i := 0; i < 3; i++ {
		testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today, 15)
	}

	code, out := f.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"personId": person.PersonID.String(), "resourceId": res.ResourceID.String(), "quantity": 1,
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	assert.Equal(t, "active loan limit reached (3 of 3)", errorDetails(out)["reason"])
}

func TestReturnLoan_Flow(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 5, 3)
	loan := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 2, today.AddDate(0, 0, -3), 15)
	path := "/api/v1/loans/" + loan.LoanID.String() + "/return"

	code, _ := f.do(t, http.MethodPost, path, map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out := f.do(t, http.MethodPost, path, map[string]interface{}{
		"resourceCondition": "Damaged",
		"returnDate":        "2025-03-19",
		"observations":      "cover torn",
	})
	require.Equal(t, fiber.StatusOK, code, out)
	d := data(out)
	assert.Equal(t, "returned", d["status"])
	assert.Equal(t, "damaged", d["resourceCondition"])
	assert.Equal(t, "cover torn", d["observations"])
	assert.Equal(t, 5, testdb.Reload(t, f.db, res.ResourceID).AvailableQuantity)

	code, out = f.do(t, http.MethodPost, path, map[string]interface{}{"resourceCondition": "good"})
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "ALREADY_CLOSED", errorDetails(out)["code"])
}

func TestReturnLoan_PlainDateOnLoanDay(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 5, 4)
	loan := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today, 15)

	code, out := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.LoanID.String()+"/return", map[string]interface{}{
		"resourceCondition": "good",
		"returnDate":        "2025-03-20",
	})
	require.Equal(t, fiber.StatusOK, code, out)
	d := data(out)
	assert.Equal(t, "returned", d["status"])
	returned, err := time.Parse(time.RFC3339, d["returnedDate"].(string))
	require.NoError(t, err)
	assert.True(t, returned.Equal(today))
	assert.Equal(t, 5, testdb.Reload(t, f.db, res.ResourceID).AvailableQuantity)

	code, _ = f.do(t, http.MethodPost, "/api/v1/loans/"+loan.LoanID.String()+"/return", map[string]interface{}{
		"resourceCondition": "good",
		"returnDate":        "2025-03-20T00:00:00Z",
	})
	assert.Equal(t, fiber.StatusConflict, code)
}

func TestReturnLoan_FutureDateRejected(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 5, 5)
	loan := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today, 15)

	code, _ := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.LoanID.String()+"/return", map[string]interface{}{
		"resourceCondition": "good",
		"returnDate":        "2025-03-25T00:00:00Z",
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestMarkLost_AdjustsCatalog(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 5, 3)
	loan := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 2, today.AddDate(0, 0, -30), 15)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+loan.LoanID.String()+"/lost", nil)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	got := testdb.Reload(t, f.db, res.ResourceID)
	assert.Equal(t, 3, got.TotalQuantity)
	assert.Equal(t, 3, got.AvailableQuantity)
}

func TestRenewLoan(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 5, 5)
	fresh := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -2), 15)
	late := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -20), 15)

	code, out := f.do(t, http.MethodPost, "/api/v1/loans/"+fresh.LoanID.String()+"/renew", map[string]interface{}{"dueDate": "2025-04-30"})
	require.Equal(t, fiber.StatusOK, code, out)
	assert.Equal(t, float64(1), data(out)["renewalCount"])

	code, out = f.do(t, http.MethodPost, "/api/v1/loans/"+late.LoanID.String()+"/renew", nil)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "LOAN_OVERDUE", errorDetails(out)["code"])
}

func TestGetLoan(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 5, 5)
	loan := testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -20), 15)

	code, out := f.do(t, http.MethodGet, "/api/v1/loans/"+loan.LoanID.String(), nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, loan.LoanID.String(), data(out)["id"])
	assert.Equal(t, true, data(out)["isOverdue"])
	assert.Equal(t, float64(5), data(out)["daysOverdue"])

	code, _ = f.do(t, http.MethodGet, "/api/v1/loans/"+uuid.New().String(), nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/loans/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestListLoans_FiltersAndMetadata(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonStudent)
	res := testdb.Resource(t, f.db, 10, 10)
	testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -40), 15)
	testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -20), 15)
	testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today, 15)

	code, out := f.do(t, http.MethodGet, "/api/v1/loans?isOverdue=true&sortBy=daysOverdue&sortOrder=desc&limit=1", nil)
	require.Equal(t, fiber.StatusOK, code, out)
	items := out["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(25), items[0].(map[string]interface{})["daysOverdue"])
	meta := out["metadata"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, float64(2), meta["totalPages"])

	code, out = f.do(t, http.MethodGet, "/api/v1/loans?dateFrom=2025-03-20&dateTo=2025-03-20", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 1)

	code, _ = f.do(t, http.MethodGet, "/api/v1/loans?sortBy=title", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/api/v1/loans?status=borrowed", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestOverdueStatsSummaryAndEligibility(t *testing.T) {
	f := setupLoanHandlers(t)
	person := testdb.Person(t, f.db, domain.PersonTeacher)
	res := testdb.Resource(t, f.db, 10, 10)
	testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -40), 15)
	testdb.ActiveLoan(t, f.db, person.PersonID, res.ResourceID, 1, today.AddDate(0, 0, -20), 15)

	code, out := f.do(t, http.MethodGet, "/api/v1/loans/overdue/stats", nil)
	require.Equal(t, fiber.StatusOK, code)
	d := data(out)
	assert.Equal(t, float64(2), d["totalOverdue"])
	assert.Equal(t, float64(15), d["averageDaysOverdue"])
	byRange := d["byRange"].(map[string]interface{})
	assert.Equal(t, float64(1), byRange["1-7"])
	assert.Equal(t, float64(1), byRange["15-30"])
	assert.Equal(t, float64(2), d["byPersonType"].(map[string]interface{})["teacher"])

	code, out = f.do(t, http.MethodGet, "/api/v1/loans/summary", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(2), data(out)["active"])
	assert.Equal(t, float64(2), data(out)["overdue"])

	code, out = f.do(t, http.MethodGet, "/api/v1/loans/eligibility/"+person.PersonID.String(), nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, data(out)["eligible"])
	assert.Equal(t, float64(2), data(out)["activeLoans"])
}

func TestRoutes_RequirePermissions(t *testing.T) {
	db := testdb.New(t)
	h := &Handlers{Loans: &loansvc.Service{DB: db}}
	deny := func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusForbidden, "forbidden") }
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	h.Register(app.Group("/api/v1/loans"), pass, deny, deny)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/loans/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

}
