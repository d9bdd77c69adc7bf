package core

import "regexp"

// Platform id patterns shared by the argument and serializer pieces. The
// first submatch is the snowflake.
var (
	SnowflakePattern    = regexp.MustCompile(`^(\d{17,20})$`)
	ChannelPattern      = regexp.MustCompile(`^(?:<#)?(\d{17,20})>?$`)
	RolePattern         = regexp.MustCompile(`^(?:<@&)?(\d{17,20})>?$`)
	EmojiPattern        = regexp.MustCompile(`^(?:<a?:\w{2,32}:)?(\d{17,20})>?$`)
	UserOrMemberPattern = regexp.MustCompile(`^(?:<@!?)?(\d{17,20})>?$`)
)

// MatchID returns the snowflake captured by re in s.
func MatchID(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// InBounds reports whether value lies in [min, max]; nil bounds are open.
func InBounds(value float64, min, max *float64) bool {
	if min != nil && value < *min {
		return false
	}
	if max != nil && value > *max {
		return false
	}
	return true
}

// CheckBounds is InBounds reporting the failure as the matching
// RESOLVER_MINMAX_* error. suffix is appended to the bound, e.g. " characters".
func CheckBounds(lang Language, name string, value float64, min, max *float64, suffix string) error {
	if InBounds(value, min, max) {
		return nil
	}
	switch {
	case min != nil && max != nil && *min == *max:
		return Localize(lang, "RESOLVER_MINMAX_EXACTLY", name, *min, suffix)
	case min != nil && max != nil:
		return Localize(lang, "RESOLVER_MINMAX_BOTH", name, *min, *max, suffix)
	case min != nil:
		return Localize(lang, "RESOLVER_MINMAX_MIN", name, *min, suffix)
	default:
		return Localize(lang, "RESOLVER_MINMAX_MAX", name, *max, suffix)
	}
}
