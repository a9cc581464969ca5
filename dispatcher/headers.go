package dispatcher

import (
	"fmt"
	"net/http"

	"kirogate/config"
	"kirogate/types"
	"kirogate/utils"

	"github.com/google/uuid"
)

// buildUpstreamHeaders 构造上游调用所需的全部请求头
func buildUpstreamHeaders(req *http.Request, cfg *config.Config, token string, cred types.AccountCredential) {
	machineID := cred.MachineID
	if machineID == "" {
		machineID = utils.RandomHex(32)
	}
	ideTag := fmt.Sprintf("KiroIDE-%s-%s", cfg.KiroVersion, machineID)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Host", cfg.UpstreamHost())
	req.Header.Set("x-amzn-codewhisperer-optout", "true")
	req.Header.Set("x-amzn-kiro-agent-mode", config.AgentModeVibe)
	req.Header.Set("x-amz-user-agent", fmt.Sprintf("%s %s", config.SDKUserAgentPrefix, ideTag))
	req.Header.Set("User-Agent", fmt.Sprintf(
		"%s ua/2.1 os/windows lang/js md/nodejs#20.0.0 api/codewhispererstreaming#1.0.27 m/E %s",
		config.SDKUserAgentPrefix, ideTag))
	req.Header.Set("amz-sdk-invocation-id", uuid.NewString())
	req.Header.Set("amz-sdk-request", "attempt=1; max=3")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Connection", "close")
}
