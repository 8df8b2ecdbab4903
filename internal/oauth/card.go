package oauth

import "golang.org/x/text/language"

// Card is the interactive authorization prompt sent to a user who has not
// yet granted access. It marshals to the platform's interactive-card JSON.
type Card struct {
	Config   CardConfig    `json:"config"`
	Header   CardHeader    `json:"header"`
	Elements []CardElement `json:"elements"`
}

type CardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

type CardHeader struct {
	Title    CardText `json:"title"`
	Template string   `json:"template"`
}

type CardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type CardElement struct {
	Tag      string       `json:"tag"`
	Text     *CardText    `json:"text,omitempty"`
	Actions  []CardAction `json:"actions,omitempty"`
	Elements []CardText   `json:"elements,omitempty"`
}

type CardAction struct {
	Tag  string   `json:"tag"`
	Text CardText `json:"text"`
	Type string   `json:"type"`
	URL  string   `json:"url"`
}

type cardStrings struct {
	title  string
	body   string
	button string
	note   string
}

var cardTexts = map[language.Tag]cardStrings{
	language.Chinese: {
		title:  "🔐 需要用户授权",
		body:   "要使用你的身份访问文档和知识库，请点击下方按钮授权。\n\n授权后，我就能用你的身份访问你能看到的所有内容。",
		button: "点击授权",
		note:   "此授权仅限访问你有权限查看的内容",
	},
	language.English: {
		title:  "🔐 Authorization Required",
		body:   "To access your documents, wikis, and files, I need your authorization.\n\nClick the button below to grant access. You only need to do this once.",
		button: "Authorize Access",
		note:   "This authorization allows me to access documents you can see, with your identity.",
	},
}

// cardMatcher resolves arbitrary locale strings (en, en-US, zh-CN, ...) to
// one of the supported card languages. English first: it is the fallback
// for anything unrecognized.
var cardMatcher = language.NewMatcher([]language.Tag{language.English, language.Chinese})

// AuthCard builds the authorization prompt for openID in the given locale.
// Pure function, no I/O: the embedded URL carries openID as the state value
// so the callback can recover the identity.
func AuthCard(cfg Config, openID, locale string) Card {
	tag, _ := language.MatchStrings(cardMatcher, locale)

	base, _ := tag.Base()
	text, ok := cardTexts[language.MustParse(base.String())]
	if !ok {
		text = cardTexts[language.English]
	}

	authURL := AuthorizeURL(cfg, openID)

	return Card{
		Config: CardConfig{WideScreenMode: true},
		Header: CardHeader{
			Title:    CardText{Tag: "plain_text", Content: text.title},
			Template: "blue",
		},
		Elements: []CardElement{
			{
				Tag:  "div",
				Text: &CardText{Tag: "lark_md", Content: text.body},
			},
			{
				Tag: "action",
				Actions: []CardAction{
					{
						Tag:  "button",
						Text: CardText{Tag: "plain_text", Content: text.button},
						Type: "primary",
						URL:  authURL,
					},
				},
			},
			{
				Tag:      "note",
				Elements: []CardText{{Tag: "plain_text", Content: text.note}},
			},
		},
	}
}
