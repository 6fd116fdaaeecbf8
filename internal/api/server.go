package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"LensPeer/internal/contact"
	"LensPeer/internal/outreach"
	"LensPeer/internal/wallet"
)

// StatsProvider 暴露引擎的累计计数。
type StatsProvider interface {
	Stats() outreach.Stats
}

// Server 负责暴露只读 REST 接口，供外部观察外呼状态。
type Server struct {
	addr     string
	contacts contact.Store
	stats    StatsProvider
	wallets  wallet.Store
}

// NewServer 构造 API 服务实例。钱包存储可以为 nil。
func NewServer(addr string, contacts contact.Store, stats StatsProvider, wallets wallet.Store) *Server {
	return &Server{addr: addr, contacts: contacts, stats: stats, wallets: wallets}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/contacts", s.handleContacts)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/wallets", s.handleWallets)
	mux.HandleFunc("/healthz", s.handleHealth)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器并监听关闭信号。
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleContacts 按优先级顺序返回已记录的外呼档案。
func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.contacts == nil {
		http.Error(w, "存储未初始化", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit 必须是正整数", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := s.contacts.ListAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(records) > limit {
		records = records[:limit]
	}

	// 投递凭证不对外暴露。
	type contactView struct {
		ProfileID     string  `json:"profile_id"`
		Handle        string  `json:"handle"`
		DisplayName   string  `json:"display_name,omitempty"`
		Followers     int     `json:"followers"`
		PriorityScore float64 `json:"priority_score"`
		CreatedAt     int64   `json:"created_at"`
		DeliveredAt   int64   `json:"delivered_at,omitempty"`
	}
	views := make([]contactView, 0, len(records))
	for _, record := range records {
		views = append(views, contactView{
			ProfileID:     record.ProfileID,
			Handle:        record.Handle,
			DisplayName:   record.DisplayName,
			Followers:     record.Followers,
			PriorityScore: record.PriorityScore,
			CreatedAt:     record.CreatedAt,
			DeliveredAt:   record.DeliveredAt,
		})
	}

	writeJSON(w, views)
}

// handleStats 返回引擎自启动以来的累计计数。
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		http.Error(w, "引擎未初始化", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.stats.Stats())
}

// handleWallets 返回钱包参考目录。
func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.wallets == nil {
		http.Error(w, "钱包目录未启用", http.StatusServiceUnavailable)
		return
	}
	items, err := s.wallets.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, items)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
