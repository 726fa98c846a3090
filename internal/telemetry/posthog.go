package telemetry

import (
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/posthog/posthog-go"
)

type TelemetryService struct {
	client    posthog.Client
	enabled   bool
	userID    string
	machineID string
}

// NewTelemetryService creates a new telemetry service with PostHog.
// Telemetry is opt-in; a disabled service is a no-op on every call.
func NewTelemetryService(enabled bool) *TelemetryService {
	if !enabled {
		return &TelemetryService{enabled: false}
	}

	client, err := posthog.NewWithConfig(
		"phc_gXK8mLqTnYvWd2sHbPzRfUc4aEjN6oQi9tDxSyVkBm1",
		posthog.Config{
			Endpoint:  "https://us.i.posthog.com",
			Interval:  time.Second * 5,
			BatchSize: 10,
		},
	)
	if err != nil {
		log.Printf("Failed to initialize PostHog client: %v", err)
		return &TelemetryService{enabled: false}
	}

	service := &TelemetryService{
		client:    client,
		enabled:   true,
		userID:    generateAnonymousUserID(),
		machineID: generateMachineID(),
	}

	service.TrackEvent("gr_boot", map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
	})

	return service
}

// generateAnonymousUserID creates a consistent anonymous user ID
func generateAnonymousUserID() string {
	hostname, _ := os.Hostname()
	data := fmt.Sprintf("%s-%s-%s", hostname, runtime.GOOS, runtime.GOARCH)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("anon_%x", hash[:8])
}

// generateMachineID creates a consistent machine ID for grouping
func generateMachineID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	hash := sha256.Sum256([]byte(hostname))
	return fmt.Sprintf("machine_%x", hash[:6])
}

// TrackEvent sends an event to PostHog
func (t *TelemetryService) TrackEvent(eventName string, properties map[string]interface{}) {
	if t == nil || !t.enabled || t.client == nil {
		return
	}

	if properties == nil {
		properties = make(map[string]interface{})
	}

	properties["machine_id"] = t.machineID
	properties["os"] = runtime.GOOS
	properties["arch"] = runtime.GOARCH
	properties["timestamp"] = time.Now().UTC()

	// Disable person profile processing for anonymity
	properties["$process_person_profile"] = false

	err := t.client.Enqueue(posthog.Capture{
		DistinctId: t.userID,
		Event:      eventName,
		Properties: properties,
	})
	if err != nil {
		log.Printf("Failed to track event %s: %v", eventName, err)
	}
}

// TrackToolExecuted tracks one synchronous tool execution.
func (t *TelemetryService) TrackToolExecuted(toolName string, success bool, durationMs int64) {
	t.TrackEvent("gr_tool_executed", map[string]interface{}{
		"tool_name":   toolName,
		"success":     success,
		"duration_ms": durationMs,
	})
}

// TrackJobDispatched tracks one async job dispatch.
func (t *TelemetryService) TrackJobDispatched(toolName, pool string) {
	t.TrackEvent("gr_job_dispatched", map[string]interface{}{
		"tool_name": toolName,
		"pool":      pool,
	})
}

// TrackJobCompleted tracks one worker-side job completion.
func (t *TelemetryService) TrackJobCompleted(toolName, status string, durationMs int64) {
	t.TrackEvent("gr_job_completed", map[string]interface{}{
		"tool_name":   toolName,
		"status":      status,
		"duration_ms": durationMs,
	})
}

// TrackAPIRequest tracks API endpoint usage.
func (t *TelemetryService) TrackAPIRequest(endpoint string, method string, statusCode int, durationMs int64) {
	t.TrackEvent("gr_api_request", map[string]interface{}{
		"endpoint":    endpoint,
		"method":      method,
		"status_code": statusCode,
		"duration_ms": durationMs,
	})
}

// TrackError tracks error events.
func (t *TelemetryService) TrackError(errorType string, errorMessage string) {
	t.TrackEvent("gr_error_occurred", map[string]interface{}{
		"error_type":    errorType,
		"error_message": errorMessage,
	})
}

// IsEnabled returns whether telemetry is enabled
func (t *TelemetryService) IsEnabled() bool {
	return t != nil && t.enabled
}

// Close gracefully shuts down the telemetry service
func (t *TelemetryService) Close() {
	if t != nil && t.enabled && t.client != nil {
		// Allow final batched events to flush
		time.Sleep(time.Millisecond * 200)
		t.client.Close()
	}
}
