package provider

// endedReasonMessages maps the provider's endedReason codes to short
// explanations for user-facing read paths. Unknown codes pass through as-is.
var endedReasonMessages = map[string]string{
	"customer-did-not-answer":              "The call was not answered.",
	"customer-ended-call":                  "The other party hung up.",
	"customer-busy":                        "The line was busy.",
	"twilio-failed-to-connect-call":        "The carrier could not connect the call.",
	"vonage-failed-to-connect-call":        "The carrier could not connect the call.",
	"assistant-error":                      "The voice assistant hit an error.",
	"assistant-join-timed-out":             "The voice assistant could not join in time.",
	"assistant-not-provided":               "No voice assistant was configured.",
	"silence-timed-out":                    "The call ended after prolonged silence.",
	"voicemail":                            "The call went to voicemail.",
	"exceeded-max-duration":                "The maximum call duration was reached.",
	"phone-call-provider-closed-websocket": "The provider connection dropped.",
	"pipeline-no-available-llm-model":      "No language model was available to the assistant.",
	"unknown-error":                        "The provider reported an unknown error.",
}

// EndedReasonMessage renders a provider endedReason code as human-readable text.
func EndedReasonMessage(code string) string {
	if code == "" {
		return ""
	}
	if msg, ok := endedReasonMessages[code]; ok {
		return msg
	}
	return code
}
