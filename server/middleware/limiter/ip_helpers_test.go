// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		request    *http.Request
		expectedIP string
	}{
		{
			name: "X-Real-IP from trusted source",
			request: &http.Request{
				RemoteAddr: "127.0.0.1:12345",
				Header: http.Header{
					"X-Real-Ip": []string{"2.2.2.2"},
				},
			},
			expectedIP: "2.2.2.2",
		},
		{
			name: "X-Forwarded-For from trusted source",
			request: &http.Request{
				RemoteAddr: "192.168.1.1:12345",
				Header: http.Header{
					"X-Forwarded-For": []string{"3.3.3.3, 4.4.4.4"},
				},
			},
			expectedIP: "4.4.4.4",
		},
		{
			name: "Proxy headers from untrusted source are ignored",
			request: &http.Request{
				RemoteAddr: "1.1.1.1:12345",
				Header: http.Header{
					"X-Real-Ip": []string{"2.2.2.2"},
				},
			},
			expectedIP: "1.1.1.1",
		},
		{
			name: "RemoteAddr fallback",
			request: &http.Request{
				RemoteAddr: "1.1.1.1:12345",
			},
			expectedIP: "1.1.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expectedIP, getClientIP(tt.request))
		})
	}
}

func TestGetNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ip       string
		expected string
	}{
		{"IPv4 with /24", "192.168.1.1", "192.168.1.0/24"},
		{"IPv6 with /64", "2001:db8::1", "2001:db8::/64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			network := getNetwork(net.ParseIP(tt.ip), ipv4Prefix, ipv6Prefix)
			assert.Equal(t, tt.expected, network.String())
			assert.Equal(t, tt.expected, networkKey(tt.ip))
		})
	}
}
