package llm

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is a tagged union of text and embedded image content. Exactly
// one of Text or Image is set.
type ContentBlock struct {
	Text  string
	Image *ImageData
}

// ImageData carries raw image bytes with a declared media type.
type ImageData struct {
	Data      []byte
	MediaType string
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Text: text}
}

// ImageBlock builds an image content block.
func ImageBlock(data []byte, mediaType string) ContentBlock {
	return ContentBlock{Image: &ImageData{Data: data, MediaType: mediaType}}
}

// PNGBlock builds an image content block for PNG bytes.
func PNGBlock(data []byte) ContentBlock {
	return ImageBlock(data, "image/png")
}

// Message is one turn of a conversation. A conversation is an ordered slice
// of messages: exactly one system message, always first; messages are only
// appended, never reordered or deleted.
type Message struct {
	Role   Role
	Blocks []ContentBlock
}

// SystemMessage builds a plain-text system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Blocks: []ContentBlock{TextBlock(text)}}
}

// UserText builds a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Blocks: []ContentBlock{TextBlock(text)}}
}

// UserContent builds a user message from prepared content blocks.
func UserContent(blocks []ContentBlock) Message {
	return Message{Role: RoleUser, Blocks: blocks}
}

// AssistantText builds a plain-text assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []ContentBlock{TextBlock(text)}}
}

// Text flattens the message content to plain text. Image blocks render as an
// [IMAGE] marker, matching the transcript format.
func (m Message) Text() string {
	out := ""
	for i, b := range m.Blocks {
		if i > 0 {
			out += "\n"
		}
		if b.Image != nil {
			out += "[IMAGE]"
		} else {
			out += b.Text
		}
	}
	return out
}

// CloneHistory copies a conversation so appends never alias the caller's
// slice. Block slices are copied per message; image bytes are shared since
// they are never mutated.
func CloneHistory(history []Message) []Message {
	out := make([]Message, len(history))
	for i, m := range history {
		blocks := make([]ContentBlock, len(m.Blocks))
		copy(blocks, m.Blocks)
		out[i] = Message{Role: m.Role, Blocks: blocks}
	}
	return out
}
