package steamfilter

import "testing"

func TestRuleSetDefaultAllowsEverything(t *testing.T) {
	rs := NewRuleSet()

	res := rs.MatchAddr(SockAddrIn{Addr: [4]byte{1, 2, 3, 4}, Port: 80})
	if res.Matched {
		t.Fatalf("expected no match on empty rule set, got %+v", res)
	}
	res = rs.MatchName("store.steampowered.com")
	if res.Matched {
		t.Fatalf("expected no match on empty rule set, got %+v", res)
	}
}

func TestInstallAddsCatchAll(t *testing.T) {
	rs := NewRuleSet()
	if err := rs.Install(""); err != nil {
		t.Fatalf("Install: %v", err)
	}

	res := rs.MatchName("content1.steampowered.com")
	if !res.Matched || !res.Deny {
		t.Fatalf("expected catch-all deny, got %+v", res)
	}

	res = rs.MatchName("content.steampowered.com")
	if res.Matched {
		t.Fatalf("expected no catch-all match when '?' has no character to match, got %+v", res)
	}

	res = rs.MatchName("www.example.com")
	if res.Matched {
		t.Fatalf("expected no match for unrelated host, got %+v", res)
	}
}

func TestInstallCustomRuleOverridesCatchAll(t *testing.T) {
	rs := NewRuleSet()
	if err := rs.Install("content?.steampowered.com=1.2.3.4"); err != nil {
		t.Fatalf("Install: %v", err)
	}

	res := rs.MatchName("content2.steampowered.com")
	if !res.Matched || res.Deny {
		t.Fatalf("expected custom rewrite to win over catch-all, got %+v", res)
	}
	if res.Addr != [4]byte{1, 2, 3, 4} {
		t.Fatalf("unexpected rewrite address %v", res.Addr)
	}
}

func TestInstallReplacesPriorCustomRules(t *testing.T) {
	rs := NewRuleSet()
	if err := rs.Install("10.0.0.0/8=deny"); err == nil {
		t.Fatalf("expected parse error for non-IP replacement literal")
	}
	if err := rs.Install("10.0.0.0/8="); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := rs.Install("192.168.0.0/16="); err != nil {
		t.Fatalf("second Install: %v", err)
	}

	res := rs.MatchAddr(SockAddrIn{Addr: [4]byte{10, 1, 2, 3}, Port: 0})
	if res.Matched {
		t.Fatalf("expected first Install's rule to be gone, got %+v", res)
	}
	res = rs.MatchAddr(SockAddrIn{Addr: [4]byte{192, 168, 1, 1}, Port: 0})
	if !res.Matched || !res.Deny {
		t.Fatalf("expected second Install's rule to deny, got %+v", res)
	}
}

func TestAppendPreservesEarlierRulesAndCatchAll(t *testing.T) {
	rs := NewRuleSet()
	if err := rs.Install(""); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := rs.Append("store.steampowered.com=5.6.7.8"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	res := rs.MatchName("store.steampowered.com")
	if !res.Matched || res.Deny || res.Addr != [4]byte{5, 6, 7, 8} {
		t.Fatalf("expected appended rewrite, got %+v", res)
	}

	res = rs.MatchName("content3.steampowered.com")
	if !res.Matched || !res.Deny {
		t.Fatalf("expected catch-all still active after Append, got %+v", res)
	}
}

func TestParseRuleTokenNumericWithMaskAndPort(t *testing.T) {
	r, err := parseRuleToken("10.0.0.0/24:80=")
	if err != nil {
		t.Fatalf("parseRuleToken: %v", err)
	}
	if !r.numeric || r.matchPort != 80 {
		t.Fatalf("unexpected rule %+v", r)
	}
	if !r.matchAddr(ipToUint32(10, 0, 0, 5), 80) {
		t.Fatalf("expected address in /24 with matching port to match")
	}
	if r.matchAddr(ipToUint32(10, 0, 0, 5), 81) {
		t.Fatalf("expected mismatched port to not match")
	}
	if r.matchAddr(ipToUint32(10, 0, 1, 5), 80) {
		t.Fatalf("expected address outside /24 to not match")
	}
}

func TestParseRuleTokenBarePassthrough(t *testing.T) {
	r, err := parseRuleToken("example.com")
	if err != nil {
		t.Fatalf("parseRuleToken: %v", err)
	}
	if r.act != actionPassthrough {
		t.Fatalf("expected bare pattern to be a passthrough rule, got action %v", r.act)
	}
}

func TestParseRuleTokenExplicitPassthroughAddress(t *testing.T) {
	r, err := parseRuleToken("example.com=0.0.0.0")
	if err != nil {
		t.Fatalf("parseRuleToken: %v", err)
	}
	if r.act != actionPassthrough {
		t.Fatalf("expected 0.0.0.0 replacement to be passthrough, got action %v", r.act)
	}
}

func TestParseRuleTokenBadSyntax(t *testing.T) {
	cases := []string{
		"10.0.0.0/33=",
		"example.com:notaport=",
		"example.com=not-an-ip",
	}
	for _, c := range cases {
		if _, err := parseRuleToken(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func ipToUint32(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}
