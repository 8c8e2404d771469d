package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"ledger-service/internal/middleware"
	"ledger-service/internal/report"
	"ledger-service/internal/shop"
	"ledger-service/pkg/database"
	"ledger-service/pkg/jwtutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

var testScope = shop.Scope{Prefix: "shop_", Default: "practice", Admin: "postgres"}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

type stubDatabases struct {
	admin   *gorm.DB
	tenants map[string]*gorm.DB
	failing map[string]error
}

func (s *stubDatabases) Admin() (*gorm.DB, error) {
	if s.admin == nil {
		return nil, errors.New("connection refused")
	}
	return s.admin, nil
}

func (s *stubDatabases) Get(name string) (*gorm.DB, error) {
	if db, ok := s.tenants[name]; ok {
		return db, nil
	}
	if err, ok := s.failing[name]; ok {
		return nil, err
	}
	return nil, database.ErrTenantNotFound
}

type testServer struct {
	e       *echo.Echo
	jwt     *jwtutil.JWTUtil
	reports string
}

func newTestServer(t *testing.T, dbs *stubDatabases) *testServer {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	jwt := jwtutil.NewJWTUtil(jwtutil.Config{SigningKey: "test-key", ExpirationMinutes: 30})
	dir := t.TempDir()

	h := New(Deps{
		Shops:   shop.NewProvisioner(dbs, "shop_", nil).WithHashCost(bcrypt.MinCost),
		Tenants: dbs,
		Scope:   testScope,
		JWT:     jwt,
		Reports: report.NewGenerator(dir, nil).WithClock(clock),
		Clock:   clock,
	})

	e := echo.New()
	RegisterRoutes(e, h, Middlewares{
		Auth:   middleware.AuthMiddleware(jwt),
		Tenant: middleware.TenantMiddleware(middleware.TenantConfig{Tenants: dbs, Scope: testScope}),
	})
	return &testServer{e: e, jwt: jwt, reports: dir}
}

func (s *testServer) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func tenantHeader(name string) map[string]string {
	return map[string]string{middleware.DatabaseNameHeader: name}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, &stubDatabases{})
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReady(t *testing.T) {
	rec := newTestServer(t, &stubDatabases{}).do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode(t, rec)["status"])

	admin, _ := newMockDB(t)
	rec = newTestServer(t, &stubDatabases{admin: admin}).do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	admin, adminMock := newMockDB(t)
	tenant, tenantMock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{
		admin:   admin,
		tenants: map[string]*gorm.DB{"shop_acme_corp": tenant},
	})

	adminMock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)")).
		WithArgs("shop_acme_corp").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	adminMock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "shop_acme_corp"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tenantMock.ExpectBegin()
	for _, table := range []string{"users", "orders", "transactions"} {
		tenantMock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	tenantMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	tenantMock.ExpectCommit()

	rec := s.do(http.MethodPost, "/register-shop", `{"username":"Acme Corp","password":"p@ss"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "shop created", body["status"])
	assert.Equal(t, "shop_acme_corp", body["database"])
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])

	hash, err := bcrypt.GenerateFromPassword([]byte("p@ss"), bcrypt.MinCost)
	require.NoError(t, err)
	tenantMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow(1, "Acme Corp", string(hash), fixedNow))

	rec = s.do(http.MethodPost, "/login?shop_name=shop_acme_corp", `{"username":"Acme Corp","password":"p@ss"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["access_token"].(string)
	require.NotEmpty(t, token)

	rec = s.do(http.MethodGet, "/protected-resource", "", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "You are authenticated!", body["message"])
	assert.Equal(t, "shop_acme_corp", body["shop_name"])
	assert.Equal(t, "Acme Corp", body["username"])

	assert.NoError(t, adminMock.ExpectationsWereMet())
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func TestRegisterShopTakenByAnotherOwner(t *testing.T) {
	admin, adminMock := newMockDB(t)
	tenant, tenantMock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{
		admin:   admin,
		tenants: map[string]*gorm.DB{"shop_acme_corp": tenant},
	})

	adminMock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("shop_acme_corp").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	tenantMock.ExpectBegin()
	for _, table := range []string{"users", "orders", "transactions"} {
		tenantMock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	tenantMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	tenantMock.ExpectRollback()

	rec := s.do(http.MethodPost, "/register-shop", `{"shop_name":"Acme Corp","username":"intruder","password":"x"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["error"], "already exists")
	assert.Nil(t, body["access_token"])
	assert.NoError(t, adminMock.ExpectationsWereMet())
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	t.Run("unknown shop looks like bad credentials", func(t *testing.T) {
		s := newTestServer(t, &stubDatabases{})
		rec := s.do(http.MethodPost, "/login", `{"shop_name":"shop_ghost","username":"a","password":"b"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, shop.ErrInvalidCredentials.Error(), decode(t, rec)["error"])
	})

	t.Run("maintenance database is not a shop", func(t *testing.T) {
		admin, mock := newMockDB(t)
		s := newTestServer(t, &stubDatabases{admin: admin, tenants: map[string]*gorm.DB{"postgres": admin}})
		rec := s.do(http.MethodPost, "/login?shop_name=postgres", `{"username":"postgres","password":"b"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, shop.ErrInvalidCredentials.Error(), decode(t, rec)["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure carries the driver detail", func(t *testing.T) {
		s := newTestServer(t, &stubDatabases{failing: map[string]error{
			"shop_acme_corp": database.StorageError("connect to shop_acme_corp", errors.New("connection refused")),
		}})
		rec := s.do(http.MethodPost, "/login?shop_name=shop_acme_corp", `{"username":"a","password":"b"}`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "connection refused")
	})

	t.Run("unsafe shop name", func(t *testing.T) {
		s := newTestServer(t, &stubDatabases{})
		rec := s.do(http.MethodPost, `/login?shop_name=x%22%3B`, `{"username":"a","password":"b"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		tenant, mock := newMockDB(t)
		s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

		hash, err := bcrypt.GenerateFromPassword([]byte("p@ss"), bcrypt.MinCost)
		require.NoError(t, err)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
				AddRow(1, "Acme Corp", string(hash), fixedNow))

		rec := s.do(http.MethodPost, "/login?shop_name=shop_acme_corp", `{"username":"Acme Corp","password":"nope"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestProtectedResourceRequiresToken(t *testing.T) {
	s := newTestServer(t, &stubDatabases{})
	rec := s.do(http.MethodGet, "/protected-resource", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddUserChecksShop(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	other, err := s.jwt.GenerateToken("shop_other", "mallory")
	require.NoError(t, err)
	rec := s.do(http.MethodPost, "/shops/shop_acme_corp/users", `{"username":"clerk","password":"secret"}`,
		map[string]string{"Authorization": "Bearer " + other})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	owner, err := s.jwt.GenerateToken("shop_acme_corp", "Acme Corp")
	require.NoError(t, err)
	rec = s.do(http.MethodPost, "/shops/shop_acme_corp/users", `{"username":"clerk","password":"secret"}`,
		map[string]string{"Authorization": "Bearer " + owner})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "clerk", decode(t, rec)["username"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShop(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		admin, mock := newMockDB(t)
		s := newTestServer(t, &stubDatabases{admin: admin})

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		rec := s.do(http.MethodPost, "/shops", `{"name":"Acme Corp"}`, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid name", func(t *testing.T) {
		admin, mock := newMockDB(t)
		s := newTestServer(t, &stubDatabases{admin: admin})

		rec := s.do(http.MethodPost, "/shops", `{"name":"acme-corp"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListShops(t *testing.T) {
	admin, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{admin: admin})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT datname FROM pg_database")).
		WillReturnRows(sqlmock.NewRows([]string{"datname"}).AddRow("shop_acme_corp").AddRow("shop_corner_store"))

	rec := s.do(http.MethodGet, "/shops", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"shop_acme_corp", "shop_corner_store"}, decode(t, rec)["shops"])
}

func TestSelectDB(t *testing.T) {
	admin, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{admin: admin})

	rec := s.do(http.MethodPost, "/select-db", `{"db_name":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("shop_ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	rec = s.do(http.MethodPost, "/select-db", `{"db_name":"shop_ghost"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("shop_acme_corp").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	rec = s.do(http.MethodPost, "/select-db", `{"db_name":"shop_acme_corp"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "selected", decode(t, rec)["status"])

	rec = s.do(http.MethodPost, "/select-db", `{"db_name":"postgres"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDynamicTable(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	t.Run("invalid descriptor issues no SQL", func(t *testing.T) {
		body := `{"table_name":"items; DROP TABLE users","columns":[{"name":"id","type":"INT"}]}`
		rec := s.do(http.MethodPost, "/shops/acme/create-dynamic-table", body, tenantHeader("shop_acme_corp"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("valid descriptor", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE items (id INT PRIMARY KEY, label VARCHAR(50) NOT NULL)")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		body := `{"table_name":"items","columns":[
			{"name":"id","type":"int","constraints":["primary key"]},
			{"name":"label","type":"varchar(50)","constraints":["not null"]}]}`
		rec := s.do(http.MethodPost, "/shops/acme/create-dynamic-table", body, tenantHeader("shop_acme_corp"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decode(t, rec)
		assert.Equal(t, "CREATE TABLE items (id INT PRIMARY KEY, label VARCHAR(50) NOT NULL)", resp["sql"])
		assert.Equal(t, "acme", resp["shop"])
		assert.Equal(t, "shop_acme_corp", resp["database"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateCannedTable(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	rec := s.do(http.MethodPost, "/shops/acme/create-table", `{"table_type":"payroll"}`, tenantHeader("shop_acme_corp"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE sales")).WillReturnResult(sqlmock.NewResult(0, 0))
	rec = s.do(http.MethodPost, "/shops/acme/create-table", `{"table_type":"sales"}`, tenantHeader("shop_acme_corp"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrder(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	t.Run("zero amount rejected before insert", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/add-order", `{"user_id":1,"amount":0,"status":"pending"}`, tenantHeader("shop_acme_corp"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inserted", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
			WithArgs(1, 25.5, "pending", "2024-03-15").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectCommit()

		rec := s.do(http.MethodPost, "/add-order", `{"user_id":1,"amount":25.5,"status":"pending"}`, tenantHeader("shop_acme_corp"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, float64(9), body["id"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("storage failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
			WillReturnError(errors.New(`relation "orders" does not exist`))
		mock.ExpectRollback()

		rec := s.do(http.MethodPost, "/add-order", `{"user_id":1,"amount":5,"status":"pending"}`, tenantHeader("shop_acme_corp"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], `relation "orders" does not exist`)
	})
}

func TestUnknownTenant(t *testing.T) {
	s := newTestServer(t, &stubDatabases{})
	rec := s.do(http.MethodGet, "/data", "", tenantHeader("shop_ghost"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestOrders(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	rec := s.do(http.MethodGet, "/data?limit=abc", "", tenantHeader("shop_acme_corp"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" ORDER BY id DESC LIMIT $1`)).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "status", "order_date"}).
			AddRow(2, 1, 10.0, "pending", "2024-03-15"))

	rec = s.do(http.MethodGet, "/data?limit=500", "", tenantHeader("shop_acme_corp"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "2024-03-15", data[0].(map[string]interface{})["order_date"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryEmptyWindow(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	mock.ExpectQuery("FROM orders").
		WithArgs("completed", "2024-03-08").
		WillReturnRows(sqlmock.NewRows([]string{"total_orders", "total_income", "completed_orders"}).AddRow(0, 0, 0))

	rec := s.do(http.MethodGet, "/summary", "", tenantHeader("shop_acme_corp"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "weekly", body["range"])
	assert.Equal(t, "2024-03-08", body["from_date"])
	assert.Equal(t, "2024-03-15", body["to_date"])
	assert.Equal(t, float64(0), body["total_orders"])
	assert.Equal(t, float64(0), body["total_income"])
	assert.Equal(t, float64(0), body["completed_orders"])

	rec = s.do(http.MethodGet, "/summary?range=yearly", "", tenantHeader("shop_acme_corp"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportReport(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	rec := s.do(http.MethodGet, "/export-report?type=weekly", "", tenantHeader("shop_acme_corp"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_date = $1 ORDER BY id`)).
		WithArgs("2024-03-15").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "status", "order_date"}))

	rec = s.do(http.MethodGet, "/export-report", "", tenantHeader("shop_acme_corp"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "report_daily_2024-03-15.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.FileExists(t, filepath.Join(s.reports, "shop_acme_corp", "report_daily_2024-03-15.pdf"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportReportPerTenant(t *testing.T) {
	acme, acmeMock := newMockDB(t)
	globex, globexMock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{
		"shop_acme_corp": acme,
		"shop_globex":    globex,
	}})

	orderQuery := regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_date = $1 ORDER BY id`)
	acmeMock.ExpectQuery(orderQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "status", "order_date"}).
			AddRow(1, 1, "10.00", "completed", fixedNow))
	globexMock.ExpectQuery(orderQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "status", "order_date"}).
			AddRow(7, 3, "99.00", "pending", fixedNow).
			AddRow(8, 3, "12.00", "cancelled", fixedNow))

	recA := s.do(http.MethodGet, "/export-report", "", tenantHeader("shop_acme_corp"))
	require.Equal(t, http.StatusOK, recA.Code, recA.Body.String())
	recB := s.do(http.MethodGet, "/export-report", "", tenantHeader("shop_globex"))
	require.Equal(t, http.StatusOK, recB.Code, recB.Body.String())

	assert.NotEqual(t, recA.Body.Bytes(), recB.Body.Bytes())
	onDiskA, err := os.ReadFile(filepath.Join(s.reports, "shop_acme_corp", "report_daily_2024-03-15.pdf"))
	require.NoError(t, err)
	assert.Equal(t, recA.Body.Bytes(), onDiskA)

	assert.NoError(t, acmeMock.ExpectationsWereMet())
	assert.NoError(t, globexMock.ExpectationsWereMet())
}

func TestTransactions(t *testing.T) {
	tenant, mock := newMockDB(t)
	s := newTestServer(t, &stubDatabases{tenants: map[string]*gorm.DB{"shop_acme_corp": tenant}})

	rec := s.do(http.MethodPost, "/transactions", `{"item_name":"Paper","amount":12,"type":"transfer"}`, tenantHeader("shop_acme_corp"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "transactions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectCommit()

	rec = s.do(http.MethodPost, "/transactions", `{"item_name":"Paper","amount":12,"type":"Debit"}`, tenantHeader("shop_acme_corp"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(4), body["id"])
	assert.Equal(t, "debit", body["type"])
	assert.Equal(t, "2024-03-15", body["date"])

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "transactions" ORDER BY id DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "item_name", "company", "amount", "type", "notes"}).
			AddRow(4, "2024-03-15", "Paper", nil, 12.0, "debit", nil))

	rec = s.do(http.MethodGet, "/transactions", "", tenantHeader("shop_acme_corp"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Paper", list[0]["item_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
