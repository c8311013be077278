package transport

import "jackin/util"

func testLogger() *util.Logger { return util.NewLogger(0) }
