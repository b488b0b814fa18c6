package parser

import (
	"fmt"
	"strconv"
	"strings"

	"tally/ast"
	"tally/cell"
	"tally/token"
)

// parseCellReference classifies the current IDENT token as an A1 or R1C1
// cell reference. "R1" is column R, row 1; the R1C1 reading requires the
// full R<row>C<col> shape or bracketed offsets.
func (p *Parser) parseCellReference() *ast.CellRef {
	tok := p.curToken
	lit := tok.Literal

	if letters, digits, ok := splitA1(lit); ok {
		return p.buildA1(tok, letters, digits, false, false)
	}

	if isLetters(lit) && p.peekTokenIs(token.DOLLAR) {
		p.nextToken() // '$'
		if !p.expectPeek(token.INT) {
			return nil
		}
		return p.buildA1(tok, lit, p.curToken.Literal, false, true)
	}

	if ref := p.parseR1C1(tok); ref != nil {
		return ref
	}
	if len(p.errors) == 0 {
		p.addError(tok, fmt.Sprintf("unexpected identifier %q", lit))
	}
	return nil
}

// parseDollarCell parses a reference whose column is '$'-anchored:
// $A1, $A$1.
func (p *Parser) parseDollarCell() *ast.CellRef {
	tok := p.curToken // '$'
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	lit := p.curToken.Literal

	if letters, digits, ok := splitA1(lit); ok {
		return p.buildA1(tok, letters, digits, true, false)
	}
	if isLetters(lit) {
		if !p.expectPeek(token.DOLLAR) {
			return nil
		}
		if !p.expectPeek(token.INT) {
			return nil
		}
		return p.buildA1(tok, lit, p.curToken.Literal, true, true)
	}
	p.addError(p.curToken, fmt.Sprintf("invalid reference after '$': %q", lit))
	return nil
}

func (p *Parser) buildA1(tok token.Token, letters, digits string, absCol, absRow bool) *ast.CellRef {
	col, err := cell.ColumnIndex(letters)
	if err != nil {
		p.addError(tok, err.Error())
		return nil
	}
	row, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || row == 0 {
		p.addError(tok, fmt.Sprintf("invalid row number %q", digits))
		return nil
	}
	return &ast.CellRef{
		Token:  tok,
		Addr:   cell.NewAddress(uint32(row-1), col),
		AbsRow: absRow,
		AbsCol: absCol,
	}
}

// parseR1C1 parses R1C1-style references: R3C7, R[-1]C[2], R3C[2], R[1]C4.
// Returns nil without recording an error when the token is not R1C1-shaped.
func (p *Parser) parseR1C1(tok token.Token) *ast.CellRef {
	upper := strings.ToUpper(tok.Literal)
	if !strings.HasPrefix(upper, "R") {
		return nil
	}

	ref := &ast.CellRef{Token: tok}
	var colPart string

	if upper == "R" {
		if !p.peekTokenIs(token.LBRACKET) {
			return nil
		}
		off, ok := p.parseBracketOffset()
		if !ok {
			return nil
		}
		ref.RowRel = true
		ref.RowOff = off
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		colPart = strings.ToUpper(p.curToken.Literal)
	} else {
		i := 1
		for i < len(upper) && upper[i] >= '0' && upper[i] <= '9' {
			i++
		}
		if i == 1 || i >= len(upper) || upper[i] != 'C' {
			return nil
		}
		row, err := strconv.ParseUint(upper[1:i], 10, 32)
		if err != nil || row == 0 {
			return nil
		}
		ref.Addr.Row = uint32(row - 1)
		colPart = upper[i:]
	}

	switch {
	case colPart == "C" && p.peekTokenIs(token.LBRACKET):
		off, ok := p.parseBracketOffset()
		if !ok {
			return nil
		}
		ref.ColRel = true
		ref.ColOff = off
	case len(colPart) > 1 && colPart[0] == 'C' && allDigits(colPart[1:]):
		col, err := strconv.ParseUint(colPart[1:], 10, 32)
		if err != nil || col == 0 {
			p.addError(tok, fmt.Sprintf("invalid column in reference %q", tok.Literal))
			return nil
		}
		ref.Addr.Col = uint32(col - 1)
	default:
		p.addError(tok, fmt.Sprintf("invalid R1C1 reference %q", tok.Literal))
		return nil
	}

	ref.Addr = cell.NewAddress(ref.Addr.Row, ref.Addr.Col)
	return ref
}

// parseBracketOffset consumes "[n]" (n possibly signed); peek must be '['.
func (p *Parser) parseBracketOffset() (int32, bool) {
	p.nextToken() // '['
	p.nextToken()
	sign := int64(1)
	if p.curTokenIs(token.MINUS) {
		sign = -1
		p.nextToken()
	} else if p.curTokenIs(token.PLUS) {
		p.nextToken()
	}
	if !p.curTokenIs(token.INT) {
		p.addError(p.curToken, "expected offset inside brackets")
		return 0, false
	}
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 32)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("invalid offset %q", p.curToken.Literal))
		return 0, false
	}
	if !p.expectPeek(token.RBRACKET) {
		return 0, false
	}
	return int32(sign * v), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
