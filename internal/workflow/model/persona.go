package model

// PersonaBrief 编排提示词中的单个人格
type PersonaBrief struct {
	Name            string
	DisplayName     string
	Sign            string
	House           int
	Retrograde      bool
	Prompt          string
	SelfDescription string
}

// TranscriptLine 压缩对话记录中的一行
type TranscriptLine struct {
	Speaker string
	Content string
}
