// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rawsock is the concrete, fd-level, non-blocking socket facade
// that dsmsg's core depends on only through the Socket interface (see
// spec.md §6.3: "Out of scope as external collaborators: the underlying
// stream-socket primitives... Specified only via the capability they
// must provide").
//
// Every socket created here is opened non-blocking. Reads, writes,
// connects and accepts never wait: they either make progress, or return
// iox.ErrWouldBlock for the caller to retry after the fd is reported
// ready by Poll.
package rawsock
