package constant

const (
	ErrMsgMethodNotAllowed = "Method not allowed. Use POST."
	ErrMsgMissingKeyFormat = "Missing %s on the server."
	ErrMsgRateLimited      = "Rate limit exceeded. Try again in a minute."
	ErrMsgInvalidJSON      = "Invalid JSON body"
	ErrMsgInvalidRequest   = "Invalid request body"
	ErrMsgEmptyReply       = "Upstream returned empty response"
	ErrMsgUpstreamFailed   = "Upstream request failed"
	ErrMsgUpstreamTimeout  = "Upstream timed out"
	ErrMsgServerError      = "Server error"
	ErrMsgBodyTooLarge     = "Request body too large"
)

const (
	HeaderVercelID      = "x-vercel-id"
	HeaderRequestID     = "x-request-id"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderResponseReqID = "X-Request-Id"

	LocalsRequestID = "request_id"

	UnknownClientKey = "unknown"
)

const (
	// ChatTemperature and ChatMaxTokens are sent with every model call.
	ChatTemperature = 0.7
	ChatMaxTokens   = 1000

	// JobDescriptionMaxRunes bounds the tailoring text accepted per request.
	JobDescriptionMaxRunes = 20000
)

const ChatCompletedTopic = "chat.completed"
