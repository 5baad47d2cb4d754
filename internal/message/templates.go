package message

// Outreach copy by phase. Phase 1 covers recent leads (direct, confident),
// phase 2 older leads (softer), phase 3 the oldest (re-consent only).
// Placeholders use {{name}} syntax and are filled by the composer.

const optOutNotice = "Reply STOP to opt out."

var initialTemplates = map[int]map[string]string{
	1: {
		"buyer": "Hi {{first_name}}! This is {{agent_name}} from {{team_name}} at {{brokerage}}. " +
			"We connected a while back - wanted to reach out personally. " +
			"Are you still thinking about buying a home{{city_line}}, or has your situation changed? " +
			"No pressure at all, just checking in! " + optOutNotice,
		"seller": "Hi {{first_name}}, {{agent_name}} here from {{team_name}} at {{brokerage}}. " +
			"It's been a while since we connected - are you still thinking about making a move{{city_line}}? " +
			"The market right now has some interesting opportunities. " +
			"Happy to share what we're seeing, no obligation at all. " + optOutNotice,
		"default": "Hi {{first_name}}! This is {{agent_name}} from {{team_name}} at {{brokerage}}. " +
			"We connected a while back and just wanted to check in. " +
			"Are you still thinking about real estate{{city_line}}? " +
			"No pressure - just here to help! " + optOutNotice,
	},
	2: {
		"buyer": "Hi {{first_name}}! Hope you're doing well. " +
			"This is {{agent_name}} from {{team_name}} at {{brokerage}} - we crossed paths a few years back. " +
			"I know life gets busy but I wanted to reach out - " +
			"has buying a home{{city_line}} ever come back on your radar? " +
			"Happy to chat anytime, completely free. " + optOutNotice,
		"seller": "Hi {{first_name}}, hope things are going well! " +
			"{{agent_name}} here from {{team_name}} at {{brokerage}}. " +
			"We connected a few years ago and I just wanted to check in - " +
			"has making a move{{city_line}} ever come back on your mind? " +
			"The market has changed quite a bit since we last spoke. " +
			"No pressure at all - just here if you ever want to talk! " + optOutNotice,
		"default": "Hi {{first_name}}! Hope you're well. " +
			"This is {{agent_name}} from {{team_name}} at {{brokerage}} - " +
			"we crossed paths a few years back around real estate. " +
			"Just wanted to check in and see how things are going. " +
			"Still thinking about buying or selling? Happy to help anytime! " + optOutNotice,
	},
	3: {
		"default": "Hi {{first_name}}! This is {{agent_name}} from {{team_name}} at {{brokerage}}. " +
			"We're updating our records and wanted to reconnect with some of our older contacts. " +
			"Are you still interested in real estate at all, or would you prefer we don't reach out? " +
			"Either answer is totally fine - just reply YES to stay in touch or STOP to unsubscribe. " + optOutNotice,
	},
}

var followUpTemplates = map[int]string{
	1: "Hi {{first_name}}, just circling back! {{agent_name}} from {{team_name}}. " +
		"Did you get a chance to see my last message? " +
		"Happy to share what's happening in the market - completely free, no commitment. " +
		"Just say YES if you'd like to chat! " + optOutNotice,
	2: "Hi {{first_name}}, just following up on my message from a few days ago! " +
		"{{agent_name}} from {{team_name}}. " +
		"No pressure at all - just wanted to make sure you got it. " +
		"Would love to reconnect whenever you're ready. " + optOutNotice,
	3: "Hi {{first_name}}, just circling back - {{agent_name}} from {{team_name}}. " +
		"Did you get a chance to see my last message? " +
		"Just reply YES to stay in touch or STOP to unsubscribe. " +
		"Either way is perfectly fine!",
}

const optOutConfirmation = "You've been unsubscribed. You won't receive any more messages from us. Take care!"

const systemPromptBase = `You are {{agent_name}}, a friendly real estate assistant from {{team_name}} at {{brokerage}}.
Your goal is to qualify leads and book a free 15-20 minute meeting or call.

Key rules:
- Always be warm, low-pressure, and helpful
- Never pushy or salesy
- Always offer the meeting as FREE with no obligation, nothing to sign
- Keep SMS replies SHORT (under 160 characters when possible)
- Always end with a question to keep the conversation going
- If they say STOP or unsubscribe, immediately confirm opt-out only

When they agree to meet, confirm and ask what works best - days or evenings.
`

var systemPromptByPhase = map[int]string{
	1: `
This is a recent lead (last 2 years):
- Be confident and direct
- Goal is to book the free meeting quickly
- Tone: friendly, professional, like a knowledgeable friend in real estate
`,
	2: `
This is an older lead (2-5 years):
- Be extra warm and patient - they haven't heard from us in a while
- Never assume they're still looking - ask gently
- If they're not ready, ask if it's okay to follow up in a few months
- Tone: like reconnecting with an old acquaintance, not a sales call
`,
	3: `
This is a very old lead (5+ years):
- Primary goal is re-consent - get them to say YES to staying in touch
- Do NOT push for a meeting on first reply - just get permission first
- Be very soft, respectful, and understanding
- Tone: like reconnecting with someone you haven't spoken to in years
`,
}

const classifyInstruction = `After your reply, add a final line of the form "TEMPERATURE: <label>" where <label> is exactly one of hot, warm, or cold, describing the lead's buying interest based on their latest message. Do not mention the label in the reply itself.`
