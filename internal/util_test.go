package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostOf(t *testing.T) {
	tests := []struct {
		in     string
		host   string
		parsed bool
	}{
		{"https://ads.doubleclick.net/x", "ads.doubleclick.net", true},
		{"https://Example.COM:8443/path?q=1", "example.com", true},
		{"http://[::1]:8080/", "::1", true},
		{"data:text/plain,hello", "", true},
		{"example.com/no-scheme", "", false},
		{"", "", false},
		{"http://bad host/%zz", "", false},
		{"https://ads.doubleclick.net/%zz", "ads.doubleclick.net", true},
		{"https://ads.doubleclick.net:badport/x", "ads.doubleclick.net", true},
		{"https://user:pw@Tracker.Example:99/%E0%A4%A?x#y", "tracker.example", true},
		{"http://[::1]:8080/%zz", "::1", true},
		{"http://[::1/%zz", "", false},
		{"https:///%zz", "", false},
		{"1http://ads.example/%zz", "", false},
	}

	for _, tt := range tests {
		host, ok := HostOf(tt.in)
		assert.Equal(t, tt.parsed, ok, tt.in)
		assert.Equal(t, tt.host, host, tt.in)
	}
}

func TestSourceKinds(t *testing.T) {
	assert.True(t, IsRemoteURL("https://easylist.to/easylist/easylist.txt"))
	assert.False(t, IsRemoteURL("file:///etc/lists/custom.txt"))
	assert.False(t, IsRemoteURL("./custom.txt"))
	assert.Equal(t, "/etc/lists/custom.txt", LocalPath("file:///etc/lists/custom.txt"))
	assert.Equal(t, "./custom.txt", LocalPath("./custom.txt"))
}
