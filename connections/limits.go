// Package connections holds the QUIC transport tuning defaults shared by the
// zipper server and sfn clients, adapted from salmon_quic_params.go's
// bridge-wide connection caps down to the per-connection stream caps this
// fabric actually needs (one QUIC connection per registered sfn, rather than
// a pool of bridges).
package connections

import "time"

// MaxStreamsPerConnection bounds concurrent request streams a single QUIC
// connection will admit, both inbound and outbound.
var MaxStreamsPerConnection int64 = 100

// IdleTimeout is the fallback QUIC idle timeout used when a zipper config's
// IdleTimeout is zero. A config loaded through config.LoadZipperConfig
// already has 30s filled in by SetDefaults, so this applies to configs
// built without it.
var IdleTimeout = 5 * time.Minute
