//go:build !unix

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rawsock

import (
	"fmt"
	"runtime"
	"time"
)

func serveAddress(network, address string, backlog int) (Socket, error) {
	return nil, fmt.Errorf("rawsock: %s is unsupported", runtime.GOOS)
}

func dialAddress(network, address string) (Socket, error) {
	return nil, fmt.Errorf("rawsock: %s is unsupported", runtime.GOOS)
}

func poll(fds []PollFd, timeout time.Duration) (int, error) {
	return 0, fmt.Errorf("rawsock: %s is unsupported", runtime.GOOS)
}
