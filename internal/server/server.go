package server

import (
	"admin_gate/internal/action"
	"admin_gate/internal/check"
	"admin_gate/internal/config"
	"admin_gate/internal/dataType"
	"admin_gate/internal/utils"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

const (
	RequestIDHeader = "X-Gate-Request-ID"
	ForbiddenBody   = "Sorry, you are not allowed to access this page."
)

// Server answers auth subrequests: 200 lets the request through, 403 rejects it.
type Server struct {
	cfg     *config.MainConfig
	rules   atomic.Pointer[config.RuleSet]
	gate    *check.Gate
	denials *dataType.DenyCounter
}

func NewServer(cfg *config.MainConfig, ruleSet *config.RuleSet, override check.EnabledOverride) *Server {
	s := &Server{
		cfg:     cfg,
		denials: dataType.NewDenyCounter(64, time.Minute),
	}
	s.rules.Store(ruleSet)
	s.gate = NewGate(cfg, s.Rules, override)
	return s
}

// NewGate wires the gate extension points: required entries come from the current
// rule snapshot and the internal token header grants a bypass.
func NewGate(cfg *config.MainConfig, rules func() *config.RuleSet, override check.EnabledOverride) *check.Gate {
	return &check.Gate{
		Required: func() []string {
			if rs := rules(); rs != nil {
				return rs.RequiredIPs
			}
			return nil
		},
		EnabledOverride: override,
		Bypass:          []check.BypassFunc{check.InternalTokenBypass(cfg.InternalToken)},
	}
}

func (s *Server) Rules() *config.RuleSet {
	return s.rules.Load()
}

func (s *Server) Denials() *dataType.DenyCounter {
	return s.denials
}

// Reload swaps in a freshly loaded snapshot. The previous snapshot stays active on error.
func (s *Server) Reload() error {
	rs, err := config.LoadRules(s.cfg.RulePath)
	if err != nil {
		utils.LogSystem(zapcore.ErrorLevel, "reload failed", err.Error())
		return err
	}
	s.rules.Store(rs)
	utils.LogSystem(zapcore.InfoLevel, "rules reloaded", fmt.Sprintf("enabled=%t allow=%d required=%d dropped=%d",
		rs.Enabled, len(rs.AllowList), len(rs.RequiredIPs), len(rs.Dropped)))
	return nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WebPath+"/health_check", s.handleHealthCheck)
	mux.HandleFunc("/", s.handleCheck)
	return mux
}

// ListenAndServe runs until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	utils.LogSystem(zapcore.InfoLevel, "HTTP Server listening", ":"+s.cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	reqData := processRequestData(s.cfg, r)
	w.Header().Set(RequestIDHeader, reqData.RequestID)

	decision := s.gate.CheckAccess(reqData, s.Rules())

	switch decision.Get() {
	case action.Allow:
		utils.LogDebug(reqData, "allow", decision.Reason())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			utils.LogError(reqData, "Error writing response: "+err.Error(), "handleCheck")
		}
	case action.Deny:
		s.denials.Add(reqData.RemoteIP)
		utils.LogInfo(reqData, "deny", decision.Reason())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		if _, err := w.Write([]byte(ForbiddenBody)); err != nil {
			utils.LogError(reqData, "Error writing response: "+err.Error(), "handleCheck")
		}
	default:
		//should never happen
		utils.LogError(reqData, fmt.Sprintf("Error access in wrong state: %v", decision.Get()), "handleCheck")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	rs := s.Rules()
	if rs == nil {
		rs = &config.RuleSet{}
	}

	var builder strings.Builder
	builder.WriteString("ok\n")
	builder.WriteString("version=")
	builder.WriteString(dataType.GateVersion)
	builder.WriteString("\n")
	builder.WriteString("time=")
	builder.WriteString(time.Now().Format(time.RFC3339))
	builder.WriteString("\n")
	builder.WriteString("node=")
	builder.WriteString(s.cfg.NodeName)
	builder.WriteString("\n")
	builder.WriteString("enabled=")
	builder.WriteString(strconv.FormatBool(s.gate.Enabled(rs.Enabled)))
	builder.WriteString("\n")
	builder.WriteString("allow_rules=")
	builder.WriteString(strconv.Itoa(len(rs.AllowList)))
	builder.WriteString("\n")
	builder.WriteString("required_rules=")
	builder.WriteString(strconv.Itoa(len(s.gate.RequiredRules())))
	builder.WriteString("\n")
	builder.WriteString("denied_last_minute=")
	builder.WriteString(strconv.FormatInt(s.denials.Total(), 10))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(builder.String())); err != nil {
		utils.LogError(dataType.UserRequest{}, "Error writing response: "+err.Error(), "handleHealthCheck")
	}
}

func processRequestData(cfg *config.MainConfig, r *http.Request) dataType.UserRequest {
	clientIP, fromHeader := headerIP(r, cfg.ConnectingIPHeaders)
	if !fromHeader {
		ipStr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientIP = r.RemoteAddr
		} else {
			clientIP = ipStr
		}
	}

	clientURI := firstHeader(r, cfg.ConnectingURIHeaders)
	if clientURI == "" {
		clientURI = r.RequestURI
	}
	clientHost := firstHeader(r, cfg.ConnectingHostHeaders)
	if clientHost == "" {
		clientHost = r.Host
	}

	var token string
	if cfg.InternalTokenHeader != "" {
		token = r.Header.Get(cfg.InternalTokenHeader)
	}

	return dataType.UserRequest{
		RequestID:     uuid.NewString(),
		RemoteIP:      clientIP,
		Uri:           clientURI,
		UserAgent:     r.UserAgent(),
		Host:          sanitizeHost(clientHost),
		InternalToken: token,
	}
}

// headerIP reads the requester from the first configured IP header present.
// The header must carry exactly one address; a comma list or a repeated header
// yields an unknown requester and no RemoteAddr fallback.
func headerIP(r *http.Request, names []string) (string, bool) {
	for _, name := range names {
		values := r.Header.Values(name)
		if len(values) == 0 || values[0] == "" {
			continue
		}
		if len(values) > 1 {
			return "", true
		}
		ipVal := strings.TrimSpace(values[0])
		if strings.Contains(strings.Trim(ipVal, ","), ",") {
			return "", true
		}
		return ipVal, true
	}
	return "", false
}

func firstHeader(r *http.Request, names []string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// sanitizeHost keeps host usable as a log directory name.
func sanitizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == ':':
			return r
		}
		return '_'
	}, host)
	if host == "" || host == "." || host == ".." {
		return ""
	}
	return host
}
