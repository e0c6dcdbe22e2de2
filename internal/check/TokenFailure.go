package check

import (
	"fmt"
	"queue_torii/internal/action"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
	"queue_torii/internal/utils"
)

// TokenFailure refuses IPs that are serving a block for presenting too many
// rejected admission tokens.
func TokenFailure(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision, sharedMem *dataType.SharedMemory) {
	if !ruleSet.TokenFailureRule.Enabled {
		decision.Set(action.Continue)
		return
	}

	if sharedMem.BlockList.IsBlocked(reqData.RemoteIP) {
		utils.LogDebug(reqData, "TokenFailure", "blocked")
		decision.Source = SourceTokenFailure
		decision.SetCode(action.Done, []byte("403"))
		return
	}
	decision.Set(action.Continue)
}

// RecordTokenFailure counts a rejected token for the request's IP and blocks the
// IP once any configured window is exceeded.
func RecordTokenFailure(reqData dataType.UserRequest, ruleSet *config.RuleSet, sharedMem *dataType.SharedMemory) {
	if !ruleSet.TokenFailureRule.Enabled {
		return
	}

	ipKey := reqData.RemoteIP
	sharedMem.TokenFailureCounter.Add(ipKey, 1)

	for window, limit := range ruleSet.TokenFailureRule.FailureLimit {
		if sharedMem.TokenFailureCounter.Query(ipKey, window) > limit {
			utils.LogInfo(reqData, "TokenFailure", fmt.Sprintf("token failure limit exceeded: IP %s window %d limit %d", ipKey, window, limit))
			sharedMem.BlockList.Block(ipKey, ruleSet.TokenFailureRule.BlockDuration)
			sharedMem.TokenFailureCounter.Reset(ipKey)
			return
		}
	}
}
