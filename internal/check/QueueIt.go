package check

import (
	"queue_torii/internal/action"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
	"queue_torii/internal/queueit"
	"queue_torii/internal/utils"
)

const (
	SourceIPAllow      = "ip_allow"
	SourceURLAllow     = "url_allow"
	SourceTokenFailure = "token_failure"
	SourceQueue        = "queue"
	SourceDefault      = "default"
)

// QueueIt admits visitors holding a valid session cookie or admission token and
// sends everyone else to the waiting room.
func QueueIt(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision, sharedMem *dataType.SharedMemory) {
	validator := ruleSet.QueueValidator
	if !ruleSet.QueueItRule.Enabled || validator == nil {
		decision.Set(action.Continue)
		return
	}

	req := &queueit.Request{
		Scheme: reqData.Scheme,
		Host:   reqData.Host,
		URI:    reqData.Uri,
		Header: reqData.Header,
	}
	result := validator.Validate(req)
	if result.Accepted {
		utils.LogDebug(reqData, "QueueIt", "accepted by "+result.Strategy)
		decision.Source = result.Strategy
		decision.Cookie = result.Cookie
		decision.SetCode(action.Done, []byte("200"))
		return
	}

	prefix := validator.Config().QueryPrefix
	if queueit.HasToken(req.Query(), prefix) {
		utils.LogInfo(reqData, "QueueIt", "admission token rejected")
		RecordTokenFailure(reqData, ruleSet, sharedMem)
	}

	target := ruleSet.QueueItRule.TargetPath
	if target == "" {
		target = queueit.CanonicalURL(reqData.Uri, prefix)
	}
	decision.Source = SourceQueue
	decision.SetResponse(action.Done, []byte("QUEUE"), []byte(validator.QueueURL(req, target)))
}
