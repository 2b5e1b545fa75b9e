package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the client: remote calls, job
// outcomes and requests served by the local UI. In-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	transportCalls      = make(map[callKey]int64)
	transportLatencySum = make(map[string]int64)
	transportLatencyCnt = make(map[string]int64)

	jobOutcomes        = make(map[string]int64)
	validationFailures = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type callKey struct {
	Op      string
	Outcome string
}

// RecordRequest increments the UI request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordTransportCall counts one remote operation by outcome
// ("ok" or "error") and records its latency.
func RecordTransportCall(op, outcome string, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	transportCalls[callKey{Op: op, Outcome: outcome}]++
	transportLatencySum[op] += latencyMs
	transportLatencyCnt[op]++
}

// RecordJobOutcome counts a job reaching a terminal state.
func RecordJobOutcome(state string) {
	mu.Lock()
	defer mu.Unlock()
	jobOutcomes[state]++
}

// RecordValidationFailure counts an upload rejected before submission.
func RecordValidationFailure(reason string) {
	mu.Lock()
	defer mu.Unlock()
	validationFailures[reason]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP doc2txt_ui_requests_total Total requests served by the local UI\n")
	b.WriteString("# TYPE doc2txt_ui_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})
	for _, k := range reqKeys {
		fmt.Fprintf(&b, "doc2txt_ui_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP doc2txt_ui_request_duration_ms_sum Total UI request duration in milliseconds\n")
	b.WriteString("# TYPE doc2txt_ui_request_duration_ms_sum counter\n")
	b.WriteString("# HELP doc2txt_ui_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE doc2txt_ui_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})
	for _, k := range latKeys {
		fmt.Fprintf(&b, "doc2txt_ui_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "doc2txt_ui_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP doc2txt_transport_calls_total Remote operations by outcome\n")
	b.WriteString("# TYPE doc2txt_transport_calls_total counter\n")

	var callKeys []callKey
	for k := range transportCalls {
		callKeys = append(callKeys, k)
	}
	sort.Slice(callKeys, func(i, j int) bool {
		if callKeys[i].Op != callKeys[j].Op {
			return callKeys[i].Op < callKeys[j].Op
		}
		return callKeys[i].Outcome < callKeys[j].Outcome
	})
	for _, k := range callKeys {
		fmt.Fprintf(&b, "doc2txt_transport_calls_total{op=\"%s\",outcome=\"%s\"} %d\n",
			k.Op, k.Outcome, transportCalls[k])
	}

	b.WriteString("# HELP doc2txt_transport_duration_ms_sum Total remote call duration in milliseconds\n")
	b.WriteString("# TYPE doc2txt_transport_duration_ms_sum counter\n")

	ops := sortedKeys(transportLatencySum)
	for _, op := range ops {
		fmt.Fprintf(&b, "doc2txt_transport_duration_ms_sum{op=\"%s\"} %d\n", op, transportLatencySum[op])
		fmt.Fprintf(&b, "doc2txt_transport_duration_ms_count{op=\"%s\"} %d\n", op, transportLatencyCnt[op])
	}

	b.WriteString("# HELP doc2txt_jobs_terminal_total Jobs that reached a terminal state\n")
	b.WriteString("# TYPE doc2txt_jobs_terminal_total counter\n")
	for _, s := range sortedKeys(jobOutcomes) {
		fmt.Fprintf(&b, "doc2txt_jobs_terminal_total{state=\"%s\"} %d\n", s, jobOutcomes[s])
	}

	b.WriteString("# HELP doc2txt_upload_rejected_total Uploads rejected by local validation\n")
	b.WriteString("# TYPE doc2txt_upload_rejected_total counter\n")
	for _, r := range sortedKeys(validationFailures) {
		fmt.Fprintf(&b, "doc2txt_upload_rejected_total{reason=\"%s\"} %d\n", r, validationFailures[r])
	}

	return b.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
