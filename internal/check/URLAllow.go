package check

import (
	"queue_torii/internal/action"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
)

func URLAllowList(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision, sharedMem *dataType.SharedMemory) {
	if !ruleSet.URLAllowRule.Enabled {
		decision.Set(action.Continue)
		return
	}

	if ruleSet.URLAllowRule.List.Match(reqData.Uri) {
		decision.Source = SourceURLAllow
		decision.SetCode(action.Done, []byte("200"))
	} else {
		decision.Set(action.Continue)
	}
}
