// Package transport speaks the smart HTTP v2 protocol against a single
// remote repository. It implements:
//
//   - Capability discovery (GET /info/refs?service=git-upload-pack)
//   - The pkt-line wire framing, including side-band-64k demultiplexing
//   - The "fetch" command negotiation (POST /git-upload-pack) with
//     shallow/thin-pack/ofs-delta options
//   - Repository locator parsing (SSH-style, HTTP(S), with a loopback
//     carve-out for fixture servers)
//
// Example usage:
//
//	t := transport.NewHTTPTransport("https://example.com/repo", 30*time.Second)
//	adv, err := t.Discover(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := t.Fetch(ctx, transport.FetchRequest{Want: tip, ThinPack: true})
//
// Everything above the TLS socket itself belongs here; dialing and
// certificate validation are left to net/http.
package transport
