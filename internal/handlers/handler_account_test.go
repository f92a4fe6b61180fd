package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/handlers"
	"github.com/SscSPs/ledger_core/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testJWTSecret = "test-secret-key-that-is-long-enough"

// generateTestToken creates a signed JWT whose subject is userID.
func generateTestToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    "ledger-test",
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func newTestRouter(t *testing.T, ledger portssvc.LedgerSvcFacade) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := handlers.SetupValidators(); err != nil {
		t.Fatalf("failed to register validators: %v", err)
	}
	r := gin.New()
	handlers.RegisterRoutes(r, &config.Config{JWTSecret: testJWTSecret}, &portssvc.ServiceContainer{Ledger: ledger})
	return r
}

type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Field    string `json:"field"`
	EntityID string `json:"entityId"`
}

// --- Test Suite ---
type LedgerHandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
	ledger *MockLedger
	userID string
	token  string
}

func (suite *LedgerHandlerTestSuite) SetupTest() {
	suite.ledger = new(MockLedger)
	suite.router = newTestRouter(suite.T(), suite.ledger)
	suite.userID = uuid.NewString()
	suite.token = generateTestToken(suite.T(), suite.userID)
}

func (suite *LedgerHandlerTestSuite) TearDownTest() {
	suite.ledger.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Authorization", "Bearer "+suite.token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *LedgerHandlerTestSuite) decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// --- Test Cases ---

func (suite *LedgerHandlerTestSuite) TestHealthIsPublic() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestMissingTokenIsUnauthorized() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.ledger.AssertNotCalled(suite.T(), "ListAccounts", mock.Anything, mock.Anything)
}

func (suite *LedgerHandlerTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{
		Name:         "BCA",
		AccountType:  domain.Bank,
		Balance:      decimal.NewFromInt(1_000_000),
		CurrencyCode: "IDR",
	}
	created := &domain.Account{
		AccountID:    uuid.NewString(),
		UserID:       suite.userID,
		Name:         req.Name,
		AccountType:  req.AccountType,
		CurrencyCode: req.CurrencyCode,
		Balance:      req.Balance,
		Version:      1,
	}
	suite.ledger.On("CreateAccount", mock.Anything, suite.userID, mock.MatchedBy(func(r dto.CreateAccountRequest) bool {
		return r.Name == "BCA" && r.Balance.Equal(req.Balance)
	})).Return(created, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(created.AccountID, resp.AccountID)
	suite.True(resp.Balance.Equal(req.Balance))
}

func (suite *LedgerHandlerTestSuite) TestCreateAccount_BindingRules() {
	w := suite.do(http.MethodPost, "/api/v1/accounts", gin.H{"name": "Safe", "type": "vault", "currency": "IDR"})

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.decodeError(w)
	suite.Equal("validation", body.Kind)
	suite.Equal("AccountType", body.Field)
	suite.ledger.AssertNotCalled(suite.T(), "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerHandlerTestSuite) TestGetAccount_NotFound() {
	notFound := apperrors.NewAppError(apperrors.ErrNotFound, "GetAccount", "", nil).WithEntity("acc-x")
	suite.ledger.On("GetAccount", mock.Anything, suite.userID, "acc-x").Return(nil, notFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/acc-x", nil)

	suite.Equal(http.StatusNotFound, w.Code)
	body := suite.decodeError(w)
	suite.Equal("not_found", body.Kind)
	suite.Equal("acc-x", body.EntityID)
}

func (suite *LedgerHandlerTestSuite) TestUpdateAccount_BalanceAndNameInOneCall() {
	name := "BCA Payroll"
	edited := &domain.Account{AccountID: "acc-1", Name: name, Balance: decimal.NewFromInt(750), CurrencyCode: "IDR"}
	suite.ledger.On("EditAccount", mock.Anything, suite.userID, "acc-1", mock.MatchedBy(func(r dto.EditAccountRequest) bool {
		return r.Name != nil && *r.Name == name &&
			r.Balance != nil && r.Balance.Equal(decimal.NewFromInt(750)) && r.Reason == "cash count"
	})).Return(edited, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/accounts/acc-1", gin.H{"name": name, "balance": "750", "reason": "cash count"})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(name, resp.Name)
	suite.ledger.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.ledger.AssertNotCalled(suite.T(), "AdjustBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerHandlerTestSuite) TestUpdateAccount_DisplayFieldsOnly() {
	name := "BCA Payroll"
	updated := &domain.Account{AccountID: "acc-1", Name: name}
	suite.ledger.On("EditAccount", mock.Anything, suite.userID, "acc-1", mock.MatchedBy(func(r dto.EditAccountRequest) bool {
		return r.Name != nil && *r.Name == name && r.Color == nil && r.Balance == nil
	})).Return(updated, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/accounts/acc-1", gin.H{"name": name})

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestUpdateAccount_RejectedBalance() {
	invalid := apperrors.NewAppError(apperrors.ErrInvalidAmount, "EditAccount", "amount has more than 2 decimal places", nil).WithField("targetBalance")
	suite.ledger.On("EditAccount", mock.Anything, suite.userID, "acc-1", mock.Anything).Return(nil, invalid).Once()

	w := suite.do(http.MethodPut, "/api/v1/accounts/acc-1", gin.H{"name": "RENAMED", "balance": "1000.55555"})

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.decodeError(w)
	suite.Equal("invalid_amount", body.Kind)
	suite.Equal("targetBalance", body.Field)
}

func (suite *LedgerHandlerTestSuite) TestUpdateAccount_EmptyBody() {
	empty := apperrors.NewAppError(apperrors.ErrValidation, "EditAccount", "no fields to update", nil)
	suite.ledger.On("EditAccount", mock.Anything, suite.userID, "acc-1", mock.Anything).Return(nil, empty).Once()

	w := suite.do(http.MethodPut, "/api/v1/accounts/acc-1", gin.H{})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("validation", suite.decodeError(w).Kind)
}

func (suite *LedgerHandlerTestSuite) TestListAccounts_IncludesTotals() {
	accounts := []domain.Account{
		{AccountID: "acc-1", CurrencyCode: "USD", Balance: decimal.RequireFromString("10.5")},
		{AccountID: "acc-2", CurrencyCode: "USD", Balance: decimal.RequireFromString("1224")},
	}
	totals := []domain.CurrencyTotal{{CurrencyCode: "USD", Total: decimal.RequireFromString("1234.5"), AccountCount: 2}}
	suite.ledger.On("ListAccounts", mock.Anything, suite.userID).Return(accounts, nil).Once()
	suite.ledger.On("TotalBalances", mock.Anything, suite.userID).Return(totals, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListAccountsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Accounts, 2)
	suite.Require().Len(resp.Totals, 1)
	suite.Equal("USD", resp.Totals[0].CurrencyCode)
	suite.Equal("$1,234.50", resp.Totals[0].Formatted)
	suite.Equal(2, resp.Totals[0].AccountCount)
}

func (suite *LedgerHandlerTestSuite) TestDeleteAccount_Referenced() {
	conflict := apperrors.NewAppError(apperrors.ErrReferentialConflict, "DeleteAccount", "account has 3 transactions", nil).WithEntity("acc-1")
	suite.ledger.On("DeleteAccount", mock.Anything, suite.userID, "acc-1").Return(conflict).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/acc-1", nil)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("referential_conflict", suite.decodeError(w).Kind)
}

func (suite *LedgerHandlerTestSuite) TestGetBalance_Formatted() {
	suite.ledger.On("GetBalance", mock.Anything, suite.userID, "acc-1").Return(decimal.RequireFromString("1234.5"), nil).Once()
	suite.ledger.On("GetAccount", mock.Anything, suite.userID, "acc-1").Return(&domain.Account{AccountID: "acc-1", CurrencyCode: "USD"}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/acc-1/balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.AccountBalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("$1,234.50", resp.Formatted)
	suite.Equal("USD", resp.CurrencyCode)
}

func (suite *LedgerHandlerTestSuite) TestTransfer_InvalidTransfer() {
	invalid := apperrors.NewAppError(apperrors.ErrInvalidTransfer, "Transfer", "source and destination must differ", nil).WithField("destAccountId")
	suite.ledger.On("Transfer", mock.Anything, suite.userID, mock.Anything).Return(nil, invalid).Once()

	w := suite.do(http.MethodPost, "/api/v1/transfers", gin.H{"sourceAccountId": "a", "destAccountId": "a", "amount": "10"})

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.decodeError(w)
	suite.Equal("invalid_transfer", body.Kind)
	suite.Equal("destAccountId", body.Field)
}

func (suite *LedgerHandlerTestSuite) TestInternalErrorIsNotLeaked() {
	failed := apperrors.NewAppError(apperrors.ErrTransferFailed, "Transfer", "", fmt.Errorf("dial tcp 10.0.0.5:5432: connection reset"))
	suite.ledger.On("Transfer", mock.Anything, suite.userID, mock.Anything).Return(nil, failed).Once()

	w := suite.do(http.MethodPost, "/api/v1/transfers", gin.H{"sourceAccountId": "a", "destAccountId": "b", "amount": "10"})

	suite.Equal(http.StatusInternalServerError, w.Code)
	body := suite.decodeError(w)
	suite.Equal("transfer_failed", body.Kind)
	suite.NotContains(body.Error, "10.0.0.5")
}

func (suite *LedgerHandlerTestSuite) TestDeadlineIsGatewayTimeout() {
	suite.ledger.On("ListAccounts", mock.Anything, suite.userID).Return(nil, apperrors.Wrap("ListAccounts", context.DeadlineExceeded)).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusGatewayTimeout, w.Code)
	suite.Equal("timeout", suite.decodeError(w).Kind)
}

func (suite *LedgerHandlerTestSuite) TestListTransactions_PassesQuery() {
	next := "next-page"
	page := &domain.TransactionPage{
		Transactions: []domain.Transaction{{TransactionID: "t-1", AccountID: "acc-1", Direction: domain.Expense, Amount: decimal.NewFromInt(5)}},
		NextToken:    &next,
	}
	suite.ledger.On("ListTransactions", mock.Anything, suite.userID, mock.MatchedBy(func(p dto.ListTransactionsParams) bool {
		return p.Limit == 10 && p.AccountID == "acc-1" && p.Direction == domain.Expense &&
			p.NextToken != nil && *p.NextToken == "abc" && p.From != nil && p.From.Year() == 2024
	})).Return(page, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/transactions?accountId=acc-1&direction=expense&limit=10&nextToken=abc&from=2024-01-01T00:00:00Z", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListTransactionsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Transactions, 1)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal(next, *resp.NextToken)
}

func (suite *LedgerHandlerTestSuite) TestListTransactions_RejectsBadDirection() {
	w := suite.do(http.MethodGet, "/api/v1/transactions?direction=sideways", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestMarkPaid_Conflict() {
	suite.ledger.On("MarkParticipantPaid", mock.Anything, suite.userID, "bill-1", "p-1").
		Return(nil, fmt.Errorf("%w: bill-1", apperrors.ErrConcurrencyConflict)).Once()

	w := suite.do(http.MethodPost, "/api/v1/split-bills/bill-1/pay", gin.H{"participantId": "p-1"})

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("concurrency_conflict", suite.decodeError(w).Kind)
}

func (suite *LedgerHandlerTestSuite) TestCreateSplitBill_AmountMismatch() {
	mismatch := apperrors.NewAppError(apperrors.ErrAmountMismatch, "CreateSplitBill", "shares sum to 90, total is 100", nil).WithField("participants")
	suite.ledger.On("CreateSplitBill", mock.Anything, suite.userID, mock.Anything).Return(nil, mismatch).Once()

	w := suite.do(http.MethodPost, "/api/v1/split-bills", gin.H{
		"title":        "Dinner",
		"totalAmount":  "100",
		"currency":     "USD",
		"participants": []gin.H{{"name": "A", "amount": "50"}, {"name": "B", "amount": "40"}},
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("amount_mismatch", suite.decodeError(w).Kind)
}

// --- Run Test Suite ---
func TestLedgerHandler(t *testing.T) {
	suite.Run(t, new(LedgerHandlerTestSuite))
}
