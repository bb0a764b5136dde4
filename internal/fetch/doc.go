// Package fetch is the network layer of rpdarchive.
//
// A Fetcher issues GET requests with a fixed User-Agent, a per-request
// timeout and a body size limit. Requests are paced by a token-bucket
// limiter (golang.org/x/time/rate) and wrapped in a bounded exponential
// backoff retry policy (failsafe-go) that retries transport errors,
// 429 and transient 5xx answers. An optional SOCKS5 proxy is supported
// through NewProxyClient.
package fetch
