// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

var packagePool = []string{
	"requests", "flask", "click", "jinja2", "werkzeug", "urllib3",
	"idna", "certifi", "charset-normalizer", "numpy", "pandas",
	"pytest", "rich", "httpx", "pydantic", "sqlalchemy",
}

var licensePool = []string{"MIT", "Apache-2.0", "BSD-3-Clause", "MPL-2.0"}

// intrinsicRules are the rules a generated clean body can never trip,
// regardless of how the target daemon is configured. Pin and index
// backed rules depend on daemon state and are not asserted on.
var intrinsicRules = map[string]bool{
	"syntax":             true,
	"specifier-valid":    true,
	"conflict":           true,
	"duplicate":          true,
	"license-annotation": true,
}

// genCleanManifest produces a well-formed manifest: distinct packages,
// version floors, recognised license labels.
func genCleanManifest(r *rand.Rand) []byte {
	n := 3 + r.Intn(6)
	perm := r.Perm(len(packagePool))[:n]

	var b strings.Builder
	b.WriteString("# Direct dependencies\n")
	for _, idx := range perm {
		fmt.Fprintf(&b, "%s>=%d.%d.%d # %s\n",
			packagePool[idx], 1+r.Intn(4), r.Intn(10), r.Intn(10),
			licensePool[r.Intn(len(licensePool))])
	}
	return []byte(b.String())
}

// genMalformedManifest produces a body that must yield at least one
// error finding: a garbage line, a conflicting duplicate, or a broken
// specifier.
func genMalformedManifest(r *rand.Rand) []byte {
	body := genCleanManifest(r)
	switch r.Intn(3) {
	case 0:
		return append(body, "???bogus line\n"...)
	case 1:
		return append(body, "dupepkg>=1.0.0 # MIT\ndupepkg>=2.0.0 # MIT\n"...)
	default:
		return append(body, "badspec >== 1.0 # MIT\n"...)
	}
}

// runLintStorm hammers POST /api/lint with generated manifests and
// checks two invariants: broken bodies are always flagged with an
// error, and clean bodies never trip a body-intrinsic rule.
func runLintStorm(cfg Config, client *Client) ScenarioResult {
	res := ScenarioResult{Name: "lint-storm", Observations: map[string]int64{}}

	var (
		mu        sync.Mutex
		requests  int64
		httpFails int64
		missed    int64
		flagged   int64
	)
	addFailure := func(rule, msg string) {
		if len(res.Failures) < maxFailuresPerScenario {
			res.Failures = append(res.Failures, Failure{Time: time.Now().UTC(), RuleID: rule, Message: msg})
		}
	}

	deadline := time.Now().Add(cfg.Duration)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(cfg.Seed + int64(worker)))

			for time.Now().Before(deadline) {
				malformed := r.Float64() < cfg.MalformedRate
				var body []byte
				if malformed {
					body = genMalformedManifest(r)
				} else {
					body = genCleanManifest(r)
				}

				out, status, err := client.Lint(fmt.Sprintf("soak-w%d", worker), body)

				mu.Lock()
				requests++
				switch {
				case err != nil:
					httpFails++
					addFailure("SOAK-HTTP", fmt.Sprintf("lint request failed: %v", err))
				case status == http.StatusTooManyRequests:
					// Rate limiting is daemon policy, not a soak failure.
				case status != http.StatusOK:
					httpFails++
					addFailure("SOAK-HTTP", fmt.Sprintf("lint returned %d", status))
				case malformed && out.Errors == 0:
					missed++
					addFailure("SOAK-LINT-MALFORMED", "broken manifest produced no error findings")
				case !malformed:
					for _, f := range out.Findings {
						if intrinsicRules[f.Rule] {
							flagged++
							addFailure("SOAK-LINT-CLEAN",
								fmt.Sprintf("clean manifest flagged by %s: %s", f.Rule, f.Message))
						}
					}
				}
				mu.Unlock()

				if status == http.StatusTooManyRequests {
					time.Sleep(500 * time.Millisecond)
				}
			}
		}(w)
	}
	wg.Wait()

	res.Observations["requests"] = requests
	res.Observations["http_failures"] = httpFails
	res.Observations["malformed_missed"] = missed
	res.Observations["clean_flagged"] = flagged

	switch {
	case requests == 0:
		res.Reason = "no requests completed"
	case httpFails > 0:
		res.Reason = fmt.Sprintf("%d transport failures", httpFails)
	case missed > 0:
		res.Reason = fmt.Sprintf("%d broken manifests passed lint", missed)
	case flagged > 0:
		res.Reason = fmt.Sprintf("%d clean manifests flagged", flagged)
	default:
		res.Pass = true
	}
	return res
}
