package adblock

import (
	"encoding/json"
	"strings"
	"sync"
	"text/template"

	"adfilter/logger"
)

// hideSelectors are the CSS selectors hidden on every page.
var hideSelectors = []string{
	`[id*="ad"]`,
	`[class*="ad"]`,
	`[id*="banner"]`,
	`[class*="banner"]`,
	`[id*="popup"]`,
	`[class*="popup"]`,
	`[data-ad-slot]`,
	`.advertisement`,
	`.ads`,
	`.ad-container`,
	`.sponsored`,
	`iframe[src*="doubleclick.net"]`,
	`iframe[src*="googlesyndication.com"]`,
}

// fetchBlockedHosts are refused by the wrapped window.fetch.
var fetchBlockedHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googletagmanager.com",
}

const contentScriptTemplate = `(function () {
  'use strict';
  var selectors = {{.Selectors}};
  var blockedHosts = {{.Hosts}};

  function hideAds(root) {
    try {
      var nodes = (root || document).querySelectorAll(selectors.join(','));
      for (var i = 0; i < nodes.length; i++) {
        try {
          nodes[i].style.setProperty('display', 'none', 'important');
        } catch (e) {}
      }
    } catch (e) {}
  }

  function isBlocked(input) {
    try {
      var url = typeof input === 'string' ? input : (input && input.url) || String(input);
      for (var i = 0; i < blockedHosts.length; i++) {
        if (url.indexOf(blockedHosts[i]) !== -1) {
          return true;
        }
      }
    } catch (e) {}
    return false;
  }

  try {
    if (document.readyState === 'loading') {
      document.addEventListener('DOMContentLoaded', function () { hideAds(document); });
    } else {
      hideAds(document);
    }
  } catch (e) {}

  try {
    var observer = new MutationObserver(function () { hideAds(document); });
    observer.observe(document.documentElement || document, { childList: true, subtree: true });
  } catch (e) {}

  try {
    if (typeof window.fetch === 'function') {
      var originalFetch = window.fetch;
      window.fetch = function (input, init) {
        if (isBlocked(input)) {
          return Promise.reject(new TypeError('blocked by adfilter'));
        }
        return originalFetch.apply(this, arguments);
      };
    }
  } catch (e) {}
})();
`

var (
	contentScriptOnce sync.Once
	contentScript     string
)

// ContentScript returns the page script that hides ad elements and refuses
// fetches to well-known ad hosts. The script is rendered once.
func ContentScript() string {
	contentScriptOnce.Do(func() {
		script, err := renderContentScript(hideSelectors, fetchBlockedHosts)
		if err != nil {
			logger.Errorf("[AdBlock] Failed to render content script: %v", err)
			return
		}
		contentScript = script
	})
	return contentScript
}

func renderContentScript(selectors, hosts []string) (string, error) {
	tmpl, err := template.New("content-script").Parse(contentScriptTemplate)
	if err != nil {
		return "", err
	}

	sel, err := json.Marshal(selectors)
	if err != nil {
		return "", err
	}
	hs, err := json.Marshal(hosts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, struct {
		Selectors string
		Hosts     string
	}{string(sel), string(hs)}); err != nil {
		return "", err
	}
	return b.String(), nil
}
