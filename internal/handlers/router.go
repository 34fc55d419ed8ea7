package handlers

import (
	"net/http"
	"strings"

	"cashora/internal/config"
	"cashora/internal/db"
	"cashora/internal/middleware"
	"cashora/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type Deps struct {
	TxRunner     db.TxRunner
	Config       config.Config
	Log          *zerolog.Logger
	Profiles     ProfileStore
	Admins       AdminStore
	Fees         FeeStore
	Limits       LimitStore
	Banks        BankStore
	Transactions TransactionStore
	Ledger       LedgerStore
	Audit        AuditStore
	Service      TransactionService
	Notifier     Notifier
	Hub          *websocket.Hub
}

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	log          *zerolog.Logger
	profiles     ProfileStore
	admins       AdminStore
	fees         FeeStore
	limits       LimitStore
	banks        BankStore
	transactions TransactionStore
	ledger       LedgerStore
	audit        AuditStore
	service      TransactionService
	notifier     Notifier
	hub          *websocket.Hub
}

func New(deps Deps) *Handler {
	return &Handler{
		txRunner:     deps.TxRunner,
		cfg:          deps.Config,
		log:          deps.Log,
		profiles:     deps.Profiles,
		admins:       deps.Admins,
		fees:         deps.Fees,
		limits:       deps.Limits,
		banks:        deps.Banks,
		transactions: deps.Transactions,
		ledger:       deps.Ledger,
		audit:        deps.Audit,
		service:      deps.Service,
		notifier:     deps.Notifier,
		hub:          deps.Hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(h.cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.cfg.JWTSecret)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})
	router.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/transactions", h.SubmitTransaction)
		r.Post("/transactions/preview", h.PreviewTransaction)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Get("/banks", h.ListMyBanks)
		r.Get("/users/lookup", h.LookupRecipient)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireAdmin(h.profiles))
		r.Get("/transactions", h.AdminListTransactions)
		r.Get("/transactions/{id}", h.AdminGetTransaction)
		r.Post("/transactions/{id}/approve", h.ApproveTransaction)
		r.Post("/transactions/{id}/reject", h.RejectTransaction)
		r.Get("/users", h.AdminListUsers)
		r.Post("/users", h.CreateUser)
		r.Put("/users/{id}/role", h.SetUserRole)
		r.Put("/users/{id}/status", h.SetUserStatus)
		r.Post("/users/{id}/balance", h.AdjustUserBalance)
		r.Get("/users/{id}/fees", h.ListFees)
		r.Put("/fees", h.UpsertFee)
		r.Get("/users/{id}/limits", h.ListLimits)
		r.Put("/limits", h.UpsertLimit)
		r.Get("/banks", h.AdminListBanks)
		r.Post("/banks", h.CreateBank)
		r.Delete("/banks/{id}", h.DeleteBank)
		r.Put("/banks/{id}/users", h.SetBankAssignments)
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/reconcile", h.Reconcile)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
