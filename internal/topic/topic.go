// Package topic implements the static keyword classifier that decides whether
// a chat request stays in the supported aquaculture/agriculture domain.
package topic

import "strings"

// greetingPatterns matches informal or courteous openers. Greetings are let
// through to the model so the assistant can respond naturally.
var greetingPatterns = []string{
	"hi", "hello", "hey", "what's up", "how are you", "good morning",
	"good evening", "good afternoon", "good day", "thank you", "thanks",
	"thank u", "thanx", "thx", "ty", "tysm", "tyvm", "yo", "sup", "wassup",
	"hiya", "heya", "howdy", "greetings", "cheers", "namaste", "vanakkam",
	"salaam", "gm", "gn", "morning", "evening", "afternoon", "nite",
	"hello there", "hi there", "hey there", "hey buddy", "hey mate",
	"hey team", "hey folks", "hello everyone", "nice to meet you",
	"pleasure to meet you", "how's it going", "how you doing",
	"what's going on", "take care", "dear sir", "dear madam", "dear team",
	"respected sir", "respected madam", "with due respect",
	"to whom it may concern", "i would like to inquire", "may i know",
	"kindly assist", "i am writing to", "thank you in advance",
	"thank you for your time", "thank you for your attention",
	"looking forward to your response", "awaiting your reply",
	"hope you are doing well", "i hope this message finds you well",
	"appreciate your help", "please let me know", "sincerely", "regards",
	"best regards", "warm regards", "respectfully",
}

// allowedTopics matches in-domain technical queries.
var allowedTopics = []string{
	"aquaculture", "aqua", "fish", "fish farming", "pisciculture",
	"fisheries", "catla", "tilapia", "carp", "shrimp", "crab", "fingerling",
	"hatchery", "spawning", "breeding", "mariculture", "biofloc",
	"aquaponics", "hydroponics", "pond", "tank", "desilt", "water quality",
	"water management", "water ph", "irrigation", "drip irrigation",
	"drainage", "soil", "soil health", "soil testing", "compost",
	"vermicompost", "green manure", "organic", "organic fertilizer",
	"fertilizer", "fertigation", "feed", "feed management", "fish feed",
	"fish nutrition", "nutrition", "supplements", "disease", "biosecurity",
	"pest", "pest control", "pesticide", "herbicide", "fungicide",
	"integrated pest management", "ipm", "crop", "crop rotation",
	"crop yield", "seed", "seed treatment", "seedling", "harvest",
	"harvesting", "storage", "warehouse", "greenhouse", "agroforestry",
	"agriculture", "agri", "farming", "farm", "farmer", "farm equipment",
	"machinery", "automation", "monitoring", "sensor", "traceability",
	"climate", "sustainable", "livestock", "poultry", "duck", "goat",
	"sheep", "piggery", "dairy", "milk", "cattle", "pasture", "beekeeping",
	"bee", "honey",
}

func containsAny(text string, patterns []string) bool {
	low := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(low, p) {
			return true
		}
	}
	return false
}

// IsGreeting reports whether the text reads like a greeting or courtesy
// message rather than a technical query.
func IsGreeting(text string) bool {
	return containsAny(text, greetingPatterns)
}

// IsAllowed reports whether the text touches a supported domain topic.
func IsAllowed(text string) bool {
	return containsAny(text, allowedTopics)
}
