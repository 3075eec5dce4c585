// Package chatbot implements the rule-based assistant. Replies come from a
// fixed keyword table over the lowercased message; rules are checked in
// order and the first hit wins, with a generic assistant reply as fallback.
// The responder is stateless, so it needs no per-conversation storage.
package chatbot

import "strings"

// Greeting is the assistant's opening message shown before any user input.
const Greeting = "Hello! I'm your EarlyVue assistant. How can I help you today?"

// defaultReply answers anything outside the rule table.
const defaultReply = "I'm here to help you with your child's screening results and developmental tracking. You can ask me about reports, results, resources, or anything else related to EarlyVue."

// rule maps trigger substrings to a canned reply. Order matters: earlier
// rules shadow later ones, so "test results" answers about reports.
type rule struct {
	triggers []string
	reply    string
}

var rules = []rule{
	{
		triggers: []string{"report", "result"},
		reply:    "I can help you view your child's screening reports. Would you like to see the latest report or view historical data?",
	},
	{
		triggers: []string{"screen", "test"},
		reply:    "I can help you schedule a new screening or view past screening results. What would you like to do?",
	},
	{
		triggers: []string{"help", "support"},
		reply:    "I'm here to help! I can assist with viewing reports, understanding results, finding resources, or connecting you with support. What do you need help with?",
	},
	{
		triggers: []string{"resource", "helpful"},
		reply:    "I can direct you to helpful resources about child development and ASD. Would you like information about developmental milestones, specialist contacts, or educational materials?",
	},
	{
		triggers: []string{"hello", "hi", "hey"},
		reply:    "Hello! I'm your EarlyVue assistant. I can help you with screening reports, results interpretation, and finding resources. How can I assist you today?",
	},
}

// QuickActions maps UI quick-action ids to the canned prompt they submit.
var QuickActions = map[string]string{
	"viewReport":        "Show me my child's latest report",
	"scheduleScreening": "I want to schedule a new screening",
	"findResources":     "Show me helpful resources",
	"contactSupport":    "I need to contact support",
}

// Responder answers user messages from the rule table.
type Responder struct{}

// Reply returns the canned response for message.
func (Responder) Reply(message string) string {
	lower := strings.ToLower(message)
	for _, r := range rules {
		for _, trig := range r.triggers {
			if strings.Contains(lower, trig) {
				return r.reply
			}
		}
	}
	return defaultReply
}

// QuickActionPrompt resolves a quick-action id to its prompt, falling back
// to a generic request for unknown ids.
func (Responder) QuickActionPrompt(action string) string {
	if prompt, ok := QuickActions[action]; ok {
		return prompt
	}
	return "Help me with something"
}
