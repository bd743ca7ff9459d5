package controller

// OnComplete installs fn as the transfer-completion callback invoked from the
// controller interrupt. The synchronous operations never wait on it; it is
// the hook for asynchronous transfers. A nil fn clears the slot.
func (c *Controller) OnComplete(fn func()) {
	if fn == nil {
		c.onComplete.Store(nil)
		return
	}
	c.onComplete.Store(&fn)
}

func (c *Controller) handleInterrupt() {
	if fn := c.onComplete.Load(); fn != nil {
		(*fn)()
	}
}
