package utils

import (
	"fmt"

	"github.com/medama-io/go-useragent"
)

var uaParser = useragent.NewParser()

// DescribeUserAgent condenses a user agent into a short token for deny logs.
func DescribeUserAgent(inputUA string) string {
	if inputUA == "" {
		return "-"
	}
	if len(inputUA) < 8 || inputUA[:8] != "Mozilla/" {
		return fmt.Sprintf("%q", inputUA)
	}

	ua := uaParser.Parse(inputUA)
	return fmt.Sprintf("Browser:%s,BrowserVersion:%s,OS:%s", ua.Browser(), ua.BrowserVersion(), ua.OS())
}
