package dataType

import "net"

// TrieNode is a binary prefix trie over IP addresses. IPv4 addresses are stored in
// their 16-byte mapped form, so one trie holds both families.
type TrieNode struct {
	children [2]*TrieNode
	isEnd    bool
}

// Insert IP or CIDR rule into trie
func (node *TrieNode) Insert(ipNet *net.IPNet) {
	ones, bits := ipNet.Mask.Size()
	ip := ipNet.IP.To16()
	if ip == nil || bits == 0 {
		return
	}
	// a /24 on an IPv4 network is a /120 in mapped form
	if bits == 32 {
		ones += 96
	}
	current := node
	for i := 0; i < ones; i++ {
		bit := (ip[i/8] >> (7 - uint(i%8))) & 1
		if current.children[bit] == nil {
			current.children[bit] = &TrieNode{}
		}
		current = current.children[bit]
	}
	current.isEnd = true
}

// Search if the ip is covered by any inserted network
func (node *TrieNode) Search(ip net.IP) bool {
	ip = ip.To16()
	if ip == nil {
		return false
	}
	current := node
	for i := 0; i < 128; i++ {
		if current.isEnd {
			return true
		}
		bit := (ip[i/8] >> (7 - uint(i%8))) & 1
		if current.children[bit] == nil {
			return false
		}
		current = current.children[bit]
	}
	return current.isEnd
}
