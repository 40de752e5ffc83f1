package stream

// Process drains src in order, forwarding every non-empty text delta. It
// closes the chunk channel when it returns.
func (p *Parser) Process(src Source) {
	defer close(p.chunks)
	defer func() { _ = src.Close() }()

	for src.Next() {
		text := src.Text()
		if text == "" {
			continue
		}
		if !p.send(Chunk{Content: text}) {
			return
		}
	}

	if err := src.Err(); err != nil {
		p.send(Chunk{Error: err})
		return
	}
	if err := p.ctx.Err(); err != nil {
		p.send(Chunk{Error: err})
		return
	}
	p.send(Chunk{Done: true})
}

// send delivers c unless the context is cancelled first. A cancelled
// context still gets its error delivered when the consumer is listening.
func (p *Parser) send(c Chunk) bool {
	done := p.ctx.Done()
	select {
	case <-done:
		select {
		case p.chunks <- Chunk{Error: p.ctx.Err()}:
		default:
		}
		return false
	case p.chunks <- c:
		return true
	}
}
