package nodes

// Extraction graph nodes.
const (
	NodeExtractionPrompt    = "ExtractionPrompt"
	NodeExtractionChatModel = "ExtractionChatModel"
	NodeExtractionParser    = "ExtractionParser"
)

// Reply graph nodes.
const (
	NodeSuccessPrompt   = "SuccessPrompt"
	NodeFirstTurnPrompt = "FirstTurnPrompt"
	NodeExhaustedPrompt = "ExhaustedPrompt"
	NodeMissingPrompt   = "MissingPrompt"
	NodeReplyChatModel  = "ReplyChatModel"
	NodeReplyFinalizer  = "ReplyFinalizer"
)

// Stage labels used in logs and metrics.
const (
	StageExtraction = "extraction"
	StageReply      = "reply"
)
