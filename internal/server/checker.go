package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"queue_torii/internal/action"
	"queue_torii/internal/check"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
	"queue_torii/internal/utils"
	"time"
)

type CheckFunc func(dataType.UserRequest, *config.RuleSet, *action.Decision, *dataType.SharedMemory)

// QueueURLHeader carries the waiting-room URL back to nginx on a queue decision.
const QueueURLHeader = "Torii-Queue-Url"

var checkFuncs = []CheckFunc{
	check.IPAllowList,
	check.URLAllowList,
	check.TokenFailure,
	check.QueueIt,
}

type pageData struct {
	EdgeTag   string
	ConnectIP string
	Date      string
	QueueURL  string
}

// CheckMain runs the checks in order and answers the auth_request sub-request:
// 200 admits, 403 refuses, 401 with QueueURLHeader sends the visitor to the queue.
func CheckMain(w http.ResponseWriter, userRequestData dataType.UserRequest, ruleSet *config.RuleSet, cfg *config.MainConfig, sharedMem *dataType.SharedMemory) {
	decision := action.NewDecision()

	for _, checkFunc := range checkFuncs {
		checkFunc(userRequestData, ruleSet, decision, sharedMem)
		if decision.State == action.Done {
			break
		}
	}

	// nothing objected
	if decision.State == action.Continue {
		decision.Source = check.SourceDefault
		decision.SetCode(action.Done, []byte("200"))
	}

	if bytes.Equal(decision.HTTPCode, []byte("200")) {
		decisionsTotal.WithLabelValues(outcomeAllow, decision.Source).Inc()
		if decision.Cookie != nil {
			http.SetCookie(w, decision.Cookie)
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			utils.LogError(userRequestData, fmt.Sprintf("Error writing response: %v", err), "CheckMain")
		}
	} else if bytes.Equal(decision.HTTPCode, []byte("403")) {
		decisionsTotal.WithLabelValues(outcomeBlock, decision.Source).Inc()
		renderPage(w, userRequestData, cfg, "403.html", http.StatusForbidden, pageData{})
	} else if bytes.Equal(decision.HTTPCode, []byte("QUEUE")) {
		decisionsTotal.WithLabelValues(outcomeQueue, decision.Source).Inc()
		queueURL := string(decision.ResponseData)
		w.Header().Set(QueueURLHeader, queueURL)
		renderPage(w, userRequestData, cfg, "queue.html", http.StatusUnauthorized, pageData{QueueURL: queueURL})
	} else {
		//should never happen
		utils.LogError(userRequestData, fmt.Sprintf("Error access in wrong state: %v", decision), "CheckMain")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
	}
}

// renderPage executes an error page template. A missing template degrades to a
// plain text body with the same status.
func renderPage(w http.ResponseWriter, userRequestData dataType.UserRequest, cfg *config.MainConfig, name string, status int, data pageData) {
	data.EdgeTag = cfg.NodeName
	data.ConnectIP = userRequestData.RemoteIP
	data.Date = time.Now().Format("2006-01-02 15:04:05")

	tpl, err := template.ParseFiles(cfg.ErrorPage + "/" + name)
	if err != nil {
		utils.LogError(userRequestData, fmt.Sprintf("Error parsing template: %v", err), "CheckMain")
		body := fmt.Sprintf("%d - %s", status, http.StatusText(status))
		if data.QueueURL != "" {
			body += "\n" + data.QueueURL
		}
		http.Error(w, body, status)
		return
	}

	var buf bytes.Buffer
	if err = tpl.Execute(&buf, data); err != nil {
		utils.LogError(userRequestData, fmt.Sprintf("Error executing template: %v", err), "CheckMain")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err = w.Write(buf.Bytes()); err != nil {
		utils.LogError(userRequestData, fmt.Sprintf("Error writing response: %v", err), "CheckMain")
	}
}
