// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package opcua

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeEndpoint ensures an opc.tcp:// scheme and rewrites wildcard or
// localhost-ish hosts that servers commonly advertise but clients cannot dial.
func NormalizeEndpoint(endpoint string) string {
	e := strings.TrimSpace(endpoint)
	if e == "" {
		return e
	}
	if !strings.Contains(e, "://") {
		e = "opc.tcp://" + e
	}
	u, err := url.Parse(e)
	if err != nil {
		return e
	}
	if u.Hostname() == "0.0.0.0" {
		host := "127.0.0.1"
		if p := u.Port(); p != "" {
			u.Host = fmt.Sprintf("%s:%s", host, p)
		} else {
			u.Host = host
		}
	}
	return u.String()
}

// rewriteAdvertisedURL replaces the host in a server-advertised endpoint URL
// with the host the client actually dialed. Servers behind NAT or bound to
// 0.0.0.0 advertise addresses that are unreachable from outside.
func rewriteAdvertisedURL(advertised, dialed string) string {
	au, err := url.Parse(advertised)
	if err != nil {
		return dialed
	}
	du, err := url.Parse(dialed)
	if err != nil {
		return advertised
	}
	au.Host = du.Host
	return au.String()
}
