package check

import (
	"net"
	"queue_torii/internal/action"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
)

func IPAllowList(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision, sharedMem *dataType.SharedMemory) {
	if !ruleSet.IPAllowRule.Enabled {
		decision.Set(action.Continue)
		return
	}

	ip := net.ParseIP(reqData.RemoteIP)
	if ip == nil {
		decision.Set(action.Continue)
		return
	}
	if ruleSet.IPAllowRule.Trie.Search(ip) {
		decision.Source = SourceIPAllow
		decision.SetCode(action.Done, []byte("200"))
	} else {
		decision.Set(action.Continue)
	}
}
