package news

import (
	"strings"
	"unicode"
)

// Topic is a Google News section.
type Topic string

const (
	TopicWorld         Topic = "WORLD"
	TopicNation        Topic = "NATION"
	TopicBusiness      Topic = "BUSINESS"
	TopicTechnology    Topic = "TECHNOLOGY"
	TopicEntertainment Topic = "ENTERTAINMENT"
	TopicSports        Topic = "SPORTS"
	TopicScience       Topic = "SCIENCE"
	TopicHealth        Topic = "HEALTH"
)

var topicNames = map[Topic]string{
	TopicWorld:         "World",
	TopicNation:        "Nation",
	TopicBusiness:      "Business",
	TopicTechnology:    "Technology",
	TopicEntertainment: "Entertainment",
	TopicSports:        "Sports",
	TopicScience:       "Science",
	TopicHealth:        "Health",
}

// Name is the display name of the section.
func (t Topic) Name() string { return topicNames[t] }

// topicKeywords is checked in order. ASCII keywords must match a whole word
// of the user topic; the others (CJK) match as substrings.
var topicKeywords = []struct {
	keyword string
	topic   Topic
}{
	{"technology", TopicTechnology}, {"tech", TopicTechnology}, {"ai", TopicTechnology},
	{"software", TopicTechnology}, {"hardware", TopicTechnology}, {"programming", TopicTechnology},
	{"internet", TopicTechnology}, {"科技", TopicTechnology}, {"技术", TopicTechnology},
	{"人工智能", TopicTechnology}, {"互联网", TopicTechnology}, {"编程", TopicTechnology},
	{"business", TopicBusiness}, {"finance", TopicBusiness}, {"economy", TopicBusiness},
	{"stocks", TopicBusiness}, {"商业", TopicBusiness}, {"经济", TopicBusiness}, {"金融", TopicBusiness},
	{"entertainment", TopicEntertainment}, {"movies", TopicEntertainment}, {"music", TopicEntertainment},
	{"娱乐", TopicEntertainment}, {"电影", TopicEntertainment}, {"音乐", TopicEntertainment},
	{"sports", TopicSports}, {"nba", TopicSports}, {"football", TopicSports}, {"soccer", TopicSports},
	{"体育", TopicSports}, {"篮球", TopicSports}, {"足球", TopicSports},
	{"science", TopicScience}, {"research", TopicScience}, {"科学", TopicScience}, {"研究", TopicScience},
	{"health", TopicHealth}, {"medical", TopicHealth}, {"健康", TopicHealth}, {"医疗", TopicHealth},
	{"world", TopicWorld}, {"global", TopicWorld}, {"international", TopicWorld},
	{"国际", TopicWorld}, {"世界", TopicWorld}, {"全球", TopicWorld},
	{"nation", TopicNation}, {"national", TopicNation}, {"国内", TopicNation},
}

// MatchTopic maps a free-form user topic to a section, if any keyword fits.
func MatchTopic(userTopic string) (Topic, bool) {
	lower := strings.ToLower(strings.TrimSpace(userTopic))
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		words[w] = struct{}{}
	}
	for _, kw := range topicKeywords {
		if isASCII(kw.keyword) {
			if _, ok := words[kw.keyword]; ok {
				return kw.topic, true
			}
			continue
		}
		if strings.Contains(lower, kw.keyword) {
			return kw.topic, true
		}
	}
	return "", false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

var headlineTopics = map[string]struct{}{
	"headlines": {}, "top headlines": {}, "top news": {}, "top stories": {},
	"latest news": {}, "news": {}, "头条": {}, "热点": {}, "热点新闻": {},
}

// IsHeadlines reports whether the topic asks for the front page rather than
// a subject.
func IsHeadlines(userTopic string) bool {
	_, ok := headlineTopics[strings.ToLower(strings.Join(strings.Fields(userTopic), " "))]
	return ok
}
