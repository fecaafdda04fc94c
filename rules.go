package steamfilter

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
)

// action is the outcome a matched rule selects.
type action int

const (
	actionPassthrough action = iota
	actionDeny
	actionRewrite
)

// catchAllPattern is appended by Install so that uncustomized DNS lookups
// for Valve's content-distribution hostnames are dropped, while still
// letting a custom rule installed earlier in the same string take
// precedence (rules are matched in order, and the catch-all always sits
// last). See original_source/steamfilter/filter.cpp, setFilter.
const catchAllPattern = "content?.steampowered.com"

// steamCDNPort is the classic Steam content-server port, matching the 27030
// the original implementation's FilterRules constructor was built with. It
// is not read by matchAddr: see the "steamCDNPort" entry in DESIGN.md's
// open-question resolutions for why first-match-wins order already leaves no
// tie for it to break.
const steamCDNPort = 27030

// Rule is a parsed match->action pair. A Rule matches either a numeric
// IPv4 address+mask (optionally with a port) or a hostname glob, never
// both.
type Rule struct {
	numeric bool

	// numeric match fields
	addr uint32
	mask uint32

	// glob match field
	host *hostGlob

	matchPort uint16 // 0 = unconstrained

	act         action
	replaceAddr uint32 // 0 = keep caller's address
	replacePort uint16 // 0 = keep caller's port
}

// MatchResult is the decision a RuleSet hands back to a detour. Matched is
// false when no rule applied at all, in which case the caller must forward
// the call unchanged without looking at the other fields. Deny means the
// detour should synthesize the "refused"/"not found" outcome. Otherwise,
// Addr and Port carry the destination to use, with a zero value in either
// field meaning "keep what the caller originally supplied" -- this is how
// a passthrough rule is represented (both fields zero) as well as a
// partial rewrite (only one field non-zero).
type MatchResult struct {
	Matched bool
	Deny    bool
	Addr    [4]byte
	Port    uint16
}

func (r *Rule) matchAddr(addr uint32, port uint16) bool {
	if !r.numeric {
		return false
	}
	if addr&r.mask != r.addr&r.mask {
		return false
	}
	return r.matchPort == 0 || r.matchPort == port
}

func (r *Rule) matchHost(name string) bool {
	if r.numeric {
		return false
	}
	return r.host.match(name)
}

func (r *Rule) result() MatchResult {
	switch r.act {
	case actionDeny:
		return MatchResult{Matched: true, Deny: true}
	default:
		return MatchResult{
			Matched: true,
			Addr:    [4]byte{byte(r.replaceAddr >> 24), byte(r.replaceAddr >> 16), byte(r.replaceAddr >> 8), byte(r.replaceAddr)},
			Port:    r.replacePort,
		}
	}
}

// ruleTable is the immutable snapshot a RuleSet swaps in atomically.
// Custom rules are tried first, in the order they were parsed; the
// built-in catch-all, if installed, is tried last.
type ruleTable struct {
	custom   []*Rule
	catchAll *Rule
}

func (t *ruleTable) matchAddr(addr uint32, port uint16) MatchResult {
	if t == nil {
		return MatchResult{}
	}
	for _, r := range t.custom {
		if r.matchAddr(addr, port) {
			return r.result()
		}
	}
	if t.catchAll != nil && t.catchAll.matchAddr(addr, port) {
		return t.catchAll.result()
	}
	return MatchResult{}
}

func (t *ruleTable) matchHost(name string) MatchResult {
	if t == nil {
		return MatchResult{}
	}
	for _, r := range t.custom {
		if r.matchHost(name) {
			return r.result()
		}
	}
	if t.catchAll != nil && t.catchAll.matchHost(name) {
		return t.catchAll.result()
	}
	return MatchResult{}
}

// RuleSet is the ordered collection of rules consulted on every intercepted
// call. Readers never block: the current table is swapped with a single
// atomic pointer store, so a reader observes either the table before an
// Install/Append or the table after, in its entirety, never a partial
// rebuild. This mirrors the atomic-pointer caching this codebase already
// uses for its own lazily-resolved DLL/proc bindings.
type RuleSet struct {
	current atomic.Pointer[ruleTable]
}

// NewRuleSet returns an empty rule set that matches nothing and therefore
// allows all traffic, per §6 of the specification.
func NewRuleSet() *RuleSet {
	rs := &RuleSet{}
	rs.current.Store(&ruleTable{})
	return rs
}

// Install replaces the custom rule list with those parsed from s and
// (re-)installs the built-in catch-all. It is replace-not-merge: any
// custom rules from a prior Install or Append are discarded.
func (rs *RuleSet) Install(s string) error {
	rules, err := parseRules(s)
	if err != nil {
		return err
	}

	catchAll, err := parseRuleToken(catchAllPattern + "=")
	if err != nil {
		// The built-in pattern is a compile-time constant; if it ever
		// fails to parse that is a bug in this package, not bad user
		// input, but we still fail closed rather than install a
		// half-built table.
		return err
	}

	rs.current.Store(&ruleTable{custom: rules, catchAll: catchAll})
	return nil
}

// Append adds rules parsed from s to the end of the current custom list,
// ahead of the built-in catch-all, without disturbing rules already
// present. A RuleSet that has never had Install called has no catch-all
// yet; Append alone never installs one.
func (rs *RuleSet) Append(s string) error {
	rules, err := parseRules(s)
	if err != nil {
		return err
	}

	prev := rs.current.Load()
	next := &ruleTable{catchAll: prevCatchAll(prev)}
	if prev != nil {
		next.custom = append(next.custom, prev.custom...)
	}
	next.custom = append(next.custom, rules...)

	rs.current.Store(next)
	return nil
}

func prevCatchAll(t *ruleTable) *Rule {
	if t == nil {
		return nil
	}
	return t.catchAll
}

// MatchAddr consults the rule set against a connect-time destination.
func (rs *RuleSet) MatchAddr(dest SockAddrIn) MatchResult {
	return rs.current.Load().matchAddr(dest.uint32Addr(), dest.Port)
}

// MatchName consults the rule set against a DNS-style host-name lookup.
func (rs *RuleSet) MatchName(name string) MatchResult {
	return rs.current.Load().matchHost(name)
}

// parseRules splits a semicolon-separated rule string and parses each
// non-empty token. An empty string yields an empty, always-no-match slice.
func parseRules(s string) ([]*Rule, error) {
	var rules []*Rule
	for _, tok := range strings.Split(s, ";") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		r, err := parseRuleToken(tok)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// parseRuleToken parses one rule of the form
// pattern[:port][=replacement[:port]].
//
// When the "=replacement" clause is absent entirely the rule is a bare
// allow: a match stops the search and forwards the call unchanged. This
// isn't spelled out in so many words by the upstream grammar, but it falls
// out naturally from treating a zero-valued replacement exactly like an
// explicit "=0.0.0.0" passthrough, and it gives the rule string a way to
// allow-list an address or host without also having to name it as its own
// replacement.
func parseRuleToken(tok string) (*Rule, error) {
	matchPart := tok
	replacePart := ""
	hasReplace := false

	if idx := strings.IndexByte(tok, '='); idx >= 0 {
		matchPart = tok[:idx]
		replacePart = tok[idx+1:]
		hasReplace = true
	}

	matchHost, matchPort, err := splitPort(matchPart)
	if err != nil {
		return nil, &ErrRuleSyntax{Token: tok, Cause: err.Error()}
	}

	r := &Rule{matchPort: matchPort}

	if addr, mask, ok := parseIPv4Mask(matchHost); ok {
		r.numeric = true
		r.addr = addr
		r.mask = mask
	} else {
		// Host names never contain '/', so this is a malformed
		// address/prefix rather than a glob.
		if strings.IndexByte(matchHost, '/') >= 0 {
			return nil, &ErrRuleSyntax{Token: tok, Cause: "bad address/prefix " + matchHost}
		}
		g, err := newHostGlob(matchHost)
		if err != nil {
			return nil, &ErrRuleSyntax{Token: tok, Cause: "bad hostname pattern: " + err.Error()}
		}
		r.host = g
	}

	if !hasReplace {
		r.act = actionPassthrough
		return r, nil
	}

	replaceHost, replacePort, err := splitPort(replacePart)
	if err != nil {
		return nil, &ErrRuleSyntax{Token: tok, Cause: err.Error()}
	}
	r.replacePort = replacePort

	switch {
	case replaceHost == "":
		r.act = actionDeny
	case replaceHost == "0.0.0.0":
		r.act = actionPassthrough
	default:
		ip := net.ParseIP(replaceHost)
		if ip == nil || ip.To4() == nil {
			return nil, &ErrRuleSyntax{Token: tok, Cause: "bad replacement address " + replaceHost}
		}
		r.act = actionRewrite
		r.replaceAddr = binary.BigEndian.Uint32(ip.To4())
	}

	return r, nil
}

// splitPort splits "host[:port]" into host and an optional port. A bare
// numeric IPv6-free IPv4/hostname string never itself contains a colon, so
// a single rightmost split is unambiguous.
func splitPort(s string) (host string, port uint16, err error) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return s, 0, nil
	}
	portStr := s[idx+1:]
	n, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, errBadPort(portStr)
	}
	return s[:idx], uint16(n), nil
}

type errBadPort string

func (e errBadPort) Error() string { return "bad port `" + string(e) + "`" }

// parseIPv4Mask recognizes "a.b.c.d" or "a.b.c.d/prefix". Anything else
// (including glob metacharacters) is reported as not numeric so the caller
// falls back to hostname-glob matching.
func parseIPv4Mask(s string) (addr, mask uint32, ok bool) {
	prefix := 32
	base := s
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		base = s[:idx]
		n, err := strconv.Atoi(s[idx+1:])
		if err != nil || n < 0 || n > 32 {
			return 0, 0, false
		}
		prefix = n
	}

	ip := net.ParseIP(base)
	if ip == nil {
		return 0, 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, 0, false
	}

	mask = maskFromPrefix(prefix)
	addr = binary.BigEndian.Uint32(v4) & mask
	return addr, mask, true
}

func maskFromPrefix(prefix int) uint32 {
	if prefix <= 0 {
		return 0
	}
	if prefix >= 32 {
		return 0xFFFFFFFF
	}
	return ^uint32(0) << (32 - prefix)
}
