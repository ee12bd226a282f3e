// Package apitest runs an in-process fake of the finance backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var secret = []byte("apitest-secret")

// Request is one call the fake received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type failure struct {
	status  int
	message string
}

// Backend is a small in-memory rendition of the REST API. Every route lives
// under /api, like the real server.
type Backend struct {
	Server *httptest.Server

	mu           sync.Mutex
	users        map[string]account
	transactions []core.Transaction
	categories   []core.Category
	budgets      []core.Budget
	goals        []core.Goal
	nextID       int64
	requests     []Request
	failures     map[string][]failure
	gate         map[string]chan struct{}
}

type account struct {
	user     core.User
	password string
}

// New starts a fake backend seeded with one user and the default categories.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		users:    map[string]account{},
		nextID:   100,
		failures: map[string][]failure{},
		gate:     map[string]chan struct{}{},
		categories: []core.Category{
			{ID: 1, Name: "Salary", Type: core.Income},
			{ID: 2, Name: "Freelance", Type: core.Income},
			{ID: 3, Name: "Groceries", Type: core.Expense},
			{ID: 4, Name: "Rent", Type: core.Expense},
			{ID: 5, Name: "Transport", Type: core.Expense},
		},
	}
	b.users["ada@example.com"] = account{user: core.User{ID: 1, Name: "Ada", Email: "ada@example.com"}, password: "secret1"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", b.register)
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("GET /api/auth/me", b.authed(b.me))
	mux.HandleFunc("GET /api/transactions/", b.authed(b.listTransactions))
	mux.HandleFunc("POST /api/transactions/", b.authed(b.createTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", b.authed(b.updateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", b.authed(b.deleteTransaction))
	mux.HandleFunc("GET /api/transactions/categories", b.authed(b.listCategories))
	mux.HandleFunc("POST /api/transactions/categories", b.authed(b.createCategory))
	mux.HandleFunc("GET /api/budgets/", b.authed(b.listBudgets))
	mux.HandleFunc("POST /api/budgets/", b.authed(b.createBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", b.authed(b.updateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", b.authed(b.deleteBudget))
	mux.HandleFunc("GET /api/goals/", b.authed(b.listGoals))
	mux.HandleFunc("POST /api/goals/", b.authed(b.createGoal))
	mux.HandleFunc("PUT /api/goals/{id}", b.authed(b.updateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", b.authed(b.deleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", b.authed(b.contribute))

	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL, including the /api prefix.
func (b *Backend) URL() string { return b.Server.URL + "/api" }

// Token issues a signed token for the seeded user expiring at exp.
func (b *Backend) Token(exp time.Time) string {
	return IssueToken(1, exp)
}

// IssueToken signs an HS256 token carrying sub and exp claims.
func IssueToken(userID int64, exp time.Time) string {
	claims := jwt.MapClaims{"sub": strconv.FormatInt(userID, 10), "exp": exp.Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Fail makes the next call to method+path answer status with message.
// Calls queue up: Fail twice to fail twice.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	b.failures[key] = append(b.failures[key], failure{status, message})
}

// Hold blocks the next call to method+path until the returned release func
// runs. The entered channel is closed once the call is being held.
func (b *Backend) Hold(method, path string) (entered <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	in := make(chan struct{})
	out := make(chan struct{})
	b.gate[method+" "+path] = out
	b.gate["entered "+method+" "+path] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(out) }) }
}

// Requests returns every call received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Count returns how many calls matched method and path exactly.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// CountMethod returns how many calls used method, any path.
func (b *Backend) CountMethod(method string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (b *Backend) AddTransaction(tx core.Transaction) core.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tx.ID == 0 {
		tx.ID = b.id()
	}
	tx.CategoryName = b.categoryName(tx.CategoryID)
	b.transactions = append([]core.Transaction{tx}, b.transactions...)
	return tx
}

func (b *Backend) AddBudget(bg core.Budget) core.Budget {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bg.ID == 0 {
		bg.ID = b.id()
	}
	b.budgets = append(b.budgets, bg)
	return bg
}

func (b *Backend) AddGoal(g core.Goal) core.Goal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g.ID == 0 {
		g.ID = b.id()
	}
	b.goals = append(b.goals, g)
	return g
}

func (b *Backend) Transactions() []core.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Transaction(nil), b.transactions...)
}

func (b *Backend) Goals() []core.Goal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Goal(nil), b.goals...)
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		var fail *failure
		if queue := b.failures[key]; len(queue) > 0 {
			fail = &queue[0]
			b.failures[key] = queue[1:]
		}
		hold, entered := b.gate[key], b.gate["entered "+key]
		delete(b.gate, key)
		delete(b.gate, "entered "+key)
		b.mu.Unlock()

		if hold != nil {
			close(entered)
			<-hold
		}
		if fail != nil {
			writeJSON(w, fail.status, map[string]string{"error": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has expired"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct{ Name, Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name, email and password are required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email already registered"})
		return
	}
	b.users[req.Email] = account{user: core.User{ID: b.id(), Name: req.Name, Email: req.Email}, password: req.Password}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email and password are required"})
		return
	}
	b.mu.Lock()
	acc, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok || acc.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": IssueToken(acc.user.ID, time.Now().Add(time.Hour)),
		"user":  acc.user,
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	acc := b.users["ada@example.com"]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": acc.user})
}

func (b *Backend) listTransactions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"transactions": b.transactions})
}

func (b *Backend) createTransaction(w http.ResponseWriter, r *http.Request) {
	var d core.TransactionDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.CategoryID == 0 || !d.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Type, amount, and category are required"})
		return
	}
	if !d.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Type must be either income or expense"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := core.Transaction{
		ID: b.id(), Type: d.Type, Amount: d.Amount, CategoryID: d.CategoryID,
		CategoryName: b.categoryName(d.CategoryID), Date: d.Date, Description: d.Description, Notes: d.Notes,
	}
	b.transactions = append([]core.Transaction{tx}, b.transactions...)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Transaction created successfully", "transaction_id": tx.ID})
}

func (b *Backend) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var d core.TransactionDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.transactions, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Transaction not found"})
		return
	}
	tx := &b.transactions[i]
	tx.Type, tx.Amount, tx.CategoryID, tx.Date, tx.Description, tx.Notes = d.Type, d.Amount, d.CategoryID, d.Date, d.Description, d.Notes
	tx.CategoryName = b.categoryName(d.CategoryID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction updated successfully"})
}

func (b *Backend) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.transactions, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Transaction not found"})
		return
	}
	b.transactions = append(b.transactions[:i], b.transactions[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"categories": b.categories})
}

func (b *Backend) createCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Name == "" || !c.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name and type are required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID, c.IsCustom = b.id(), true
	b.categories = append(b.categories, c)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Category created successfully", "category_id": c.ID})
}

func (b *Backend) listBudgets(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Budget, len(b.budgets))
	for i, bg := range b.budgets {
		bg.CategoryName = b.categoryName(bg.CategoryID)
		if bg.Spent.IsZero() {
			for _, tx := range b.transactions {
				if tx.Type == core.Expense && tx.CategoryID == bg.CategoryID {
					bg.Spent = bg.Spent.Add(tx.Amount)
				}
			}
		}
		out[i] = bg
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (b *Backend) createBudget(w http.ResponseWriter, r *http.Request) {
	var d core.BudgetDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.CategoryID == 0 || !d.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Category and amount are required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bg := range b.budgets {
		if bg.CategoryID == d.CategoryID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Budget already exists for this category this month"})
			return
		}
	}
	bg := core.Budget{ID: b.id(), CategoryID: d.CategoryID, Amount: d.Amount, Period: d.Period}
	b.budgets = append(b.budgets, bg)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Budget created successfully", "budget_id": bg.ID})
}

func (b *Backend) updateBudget(w http.ResponseWriter, r *http.Request) {
	var d core.BudgetDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.budgets, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Budget not found"})
		return
	}
	b.budgets[i].Amount, b.budgets[i].Period = d.Amount, d.Period
	writeJSON(w, http.StatusOK, map[string]string{"message": "Budget updated successfully"})
}

func (b *Backend) deleteBudget(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.budgets, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Budget not found"})
		return
	}
	b.budgets = append(b.budgets[:i], b.budgets[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Budget deleted successfully"})
}

func (b *Backend) listGoals(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"goals": b.goals})
}

func (b *Backend) createGoal(w http.ResponseWriter, r *http.Request) {
	var d core.GoalDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.Name == "" || !d.TargetAmount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name and target amount are required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	g := core.Goal{ID: b.id(), Name: d.Name, TargetAmount: d.TargetAmount, CurrentAmount: decimal.Zero, Deadline: d.Deadline}
	b.goals = append(b.goals, g)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Goal created successfully", "goal": g})
}

func (b *Backend) updateGoal(w http.ResponseWriter, r *http.Request) {
	var d core.GoalDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.goals, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Goal not found"})
		return
	}
	b.goals[i].Name, b.goals[i].TargetAmount, b.goals[i].Deadline = d.Name, d.TargetAmount, d.Deadline
	writeJSON(w, http.StatusOK, map[string]string{"message": "Goal updated successfully"})
}

func (b *Backend) deleteGoal(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.goals, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Goal not found"})
		return
	}
	b.goals = append(b.goals[:i], b.goals[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Goal deleted successfully"})
}

func (b *Backend) contribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Amount must be positive"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := indexOf(b.goals, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Goal not found"})
		return
	}
	b.goals[i].CurrentAmount = b.goals[i].CurrentAmount.Add(req.Amount)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Contribution added successfully", "current_amount": b.goals[i].CurrentAmount})
}

func (b *Backend) categoryName(id int64) string {
	if c, ok := core.FindCategory(b.categories, id); ok {
		return c.Name
	}
	return ""
}

type identified interface{ EntityID() int64 }

func indexOf[E identified](items []E, id int64) int {
	for i, it := range items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
