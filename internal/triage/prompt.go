package triage

import (
	"fmt"
	"strings"
)

const SystemPrompt = "You are a professional 911 emergency dispatcher with 20 years of experience. " +
	"Analyze emergency calls accurately and extract critical information for first responders."

const analysisSchema = `{
    "emergency_type": "medical|fire|police|rescue|natural_disaster|traffic_accident|domestic_violence|robbery|assault|other",
    "severity_level": 1-5 (1=non-emergency, 2=low, 3=moderate, 4=high, 5=critical/life-threatening),
    "urgency": "immediate|high|medium|low|non-urgent",
    "location": {
        "address": "specific address or landmark mentioned",
        "area": "neighborhood/district/city",
        "coordinates": "if GPS mentioned",
        "accessibility": "easy|difficult|unknown"
    },
    "people_involved": {
        "victims": number,
        "suspects": number,
        "witnesses": number,
        "caller_relationship": "victim|witness|bystander|family|unknown"
    },
    "medical_info": {
        "injuries": ["injuries mentioned"],
        "consciousness": "conscious|unconscious|unknown",
        "breathing": "normal|difficulty|not_breathing|unknown",
        "age_group": "infant|child|adult|elderly|unknown"
    },
    "threat_level": {
        "ongoing_danger": true/false,
        "weapon_involved": true/false,
        "suspect_present": true/false,
        "safe_to_approach": true/false
    },
    "resources_needed": {
        "ambulance": true/false,
        "fire_truck": true/false,
        "police": true/false,
        "hazmat": true/false,
        "helicopter": true/false,
        "special_units": ["swat", "bomb_squad", "water_rescue", ...]
    },
    "response_time": "immediate|5min|10min|15min|30min|non_urgent",
    "caller_state": "calm|panicked|injured|confused|angry|hysterical",
    "call_quality": "clear|muffled|noisy|breaking_up|good",
    "key_details": ["most important facts from the call"],
    "summary": "2-3 sentence summary of the emergency",
    "dispatch_notes": "critical information for first responders",
    "follow_up_needed": true/false,
    "callback_required": true/false
}`

// BuildPrompt asks the model for a single JSON object describing the call.
func BuildPrompt(transcription string) string {
	var b strings.Builder

	b.WriteString("Analyze the emergency call transcription below and extract the information first responders need.\n\n")
	fmt.Fprintf(&b, "CALL TRANSCRIPTION:\n<<<\n%s\n>>>\n\n", strings.TrimSpace(transcription))
	b.WriteString("Respond with ONLY a valid JSON object in exactly this shape, with no other text:\n\n")
	b.WriteString(analysisSchema)
	b.WriteString("\n\nOnly extract information clearly present in the transcription. Use \"unknown\" for anything unclear.\n")

	return b.String()
}
