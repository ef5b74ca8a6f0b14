package dataType

import "net/netip"

type TrieNode struct {
	children [2]*TrieNode
	isEnd    bool
}

// IPTrie indexes allow rules of both address families.
type IPTrie struct {
	v4   TrieNode
	v6   TrieNode
	size int
}

func NewIPTrie(rules []IPRule) *IPTrie {
	t := &IPTrie{}
	for _, r := range rules {
		t.Insert(r)
	}
	return t
}

func (t *IPTrie) root(ip netip.Addr) *TrieNode {
	if ip.Is4() {
		return &t.v4
	}
	return &t.v6
}

// Insert adds the rule's prefix, bits beyond the prefix length are ignored
func (t *IPTrie) Insert(rule IPRule) {
	p := rule.Prefix()
	if !p.IsValid() {
		return
	}
	raw := p.Addr().AsSlice()
	current := t.root(p.Addr())
	for i := 0; i < p.Bits(); i++ {
		bit := (raw[i/8] >> (7 - uint(i%8))) & 1
		if current.children[bit] == nil {
			current.children[bit] = &TrieNode{}
		}
		current = current.children[bit]
	}
	current.isEnd = true
	t.size++
}

// Search if the ip is covered by any inserted rule
func (t *IPTrie) Search(ip netip.Addr) bool {
	if t == nil || !ip.IsValid() || ip.Zone() != "" {
		return false
	}
	raw := ip.AsSlice()
	current := t.root(ip)
	for i := 0; i < ip.BitLen(); i++ {
		if current.isEnd {
			return true
		}
		bit := (raw[i/8] >> (7 - uint(i%8))) & 1
		if current.children[bit] == nil {
			return false
		}
		current = current.children[bit]
	}
	return current.isEnd
}

// Len returns the number of rules inserted, duplicates included.
func (t *IPTrie) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}
