package server

import (
	"log"
	"net"
	"net/http"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
	"queue_torii/internal/queueit"
	"queue_torii/internal/utils"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the gate endpoint and the web_path endpoints.
func NewRouter(cfg *config.MainConfig, ruleSet *config.RuleSet, sharedMem *dataType.SharedMemory) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(cfg.WebPath+"/health_check", func(w http.ResponseWriter, r *http.Request) {
		handleHealthCheck(w, processRequestData(cfg, r), cfg, sharedMem)
	})
	r.Handle(cfg.WebPath+"/metrics", promhttp.Handler())
	r.Get(cfg.WebPath+"/queue_url", func(w http.ResponseWriter, r *http.Request) {
		handleQueueURL(w, r, processRequestData(cfg, r), ruleSet)
	})

	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		CheckMain(w, processRequestData(cfg, r), ruleSet, cfg, sharedMem)
	})
	return r
}

// StartServer starts the HTTP server
func StartServer(cfg *config.MainConfig, ruleSet *config.RuleSet, sharedMem *dataType.SharedMemory) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, ruleSet, sharedMem),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("HTTP Server listening on :%s ...", cfg.Port)
	return srv.ListenAndServe()
}

func firstHeader(r *http.Request, names []string) string {
	for _, headerName := range names {
		if val := r.Header.Get(headerName); val != "" {
			return val
		}
	}
	return ""
}

func processRequestData(cfg *config.MainConfig, r *http.Request) dataType.UserRequest {
	clientIP := firstHeader(r, cfg.ConnectingIPHeaders)
	if clientIP != "" {
		// X-Forwarded-For style lists carry the client first
		clientIP, _, _ = strings.Cut(clientIP, ",")
		clientIP = strings.TrimSpace(clientIP)
	} else {
		ipStr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientIP = r.RemoteAddr
		} else {
			clientIP = ipStr
		}
	}

	clientHost := firstHeader(r, cfg.ConnectingHostHeaders)
	if clientHost == "" {
		clientHost = r.Host
	}

	clientURI := firstHeader(r, cfg.ConnectingURIHeaders)
	if clientURI == "" {
		clientURI = r.RequestURI
	}

	clientScheme := strings.ToLower(firstHeader(r, cfg.ConnectingSchemeHeaders))
	if clientScheme != "http" && clientScheme != "https" {
		clientScheme = "http"
		if r.TLS != nil {
			clientScheme = "https"
		}
	}

	return dataType.UserRequest{
		RequestID: uuid.NewString(),
		RemoteIP:  clientIP,
		Scheme:    clientScheme,
		Host:      clientHost,
		Uri:       clientURI,
		UserAgent: r.UserAgent(),
		Header:    r.Header,
	}
}

func handleHealthCheck(w http.ResponseWriter, reqData dataType.UserRequest, cfg *config.MainConfig, sharedMem *dataType.SharedMemory) {
	var builder strings.Builder
	builder.WriteString("ok\n")
	builder.WriteString("version=")
	builder.WriteString(dataType.QueueToriiVersion)
	builder.WriteString("\n")
	builder.WriteString("time=")
	builder.WriteString(time.Now().Format(time.RFC3339))
	builder.WriteString("\n")
	builder.WriteString("ts=")
	builder.WriteString(strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 3, 64))
	builder.WriteString("\n")
	builder.WriteString("sliver=")
	builder.WriteString(cfg.NodeName)
	builder.WriteString("\n")
	builder.WriteString("blocked=")
	builder.WriteString(strconv.Itoa(sharedMem.BlockList.Len()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(builder.String())); err != nil {
		utils.LogError(reqData, "Error writing response: "+err.Error(), "handleHealthCheck")
	}
}

// handleQueueURL answers with the waiting-room URL for a path on the caller's host.
func handleQueueURL(w http.ResponseWriter, r *http.Request, reqData dataType.UserRequest, ruleSet *config.RuleSet) {
	if ruleSet.QueueValidator == nil {
		http.NotFound(w, r)
		return
	}
	target := r.URL.Query().Get("target")
	if target == "" {
		target = "/"
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		http.Error(w, "400 - Bad Request", http.StatusBadRequest)
		return
	}

	req := &queueit.Request{Scheme: reqData.Scheme, Host: reqData.Host}
	queueURL := ruleSet.QueueValidator.QueueURL(req, queueit.CanonicalURL(target, ruleSet.QueueValidator.Config().QueryPrefix))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(queueURL)); err != nil {
		utils.LogError(reqData, "Error writing response: "+err.Error(), "handleQueueURL")
	}
}
