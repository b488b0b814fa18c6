package parser

import (
	"fmt"
	"strconv"
	"strings"

	"tally/ast"
	"tally/cell"
	"tally/lexer"
	"tally/token"
	"tally/value"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []ParseError

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	deps     []cell.Ref
	depsSeen map[string]bool
}

const (
	_ int = iota
	LOWEST
	OR
	AND
	NOT
	COMPARE
	CONCAT
	SUM
	PRODUCT
	PREFIX
	POWER
	POSTFIX
)

var precedences = map[token.TokenType]int{
	token.OR:        OR,
	token.AND:       AND,
	token.EQ:        COMPARE,
	token.NE:        COMPARE,
	token.LT:        COMPARE,
	token.LE:        COMPARE,
	token.GT:        COMPARE,
	token.GE:        COMPARE,
	token.AMPERSAND: CONCAT,
	token.PLUS:      SUM,
	token.MINUS:     SUM,
	token.ASTERISK:  PRODUCT,
	token.SLASH:     PRODUCT,
	token.PERCENT:   PRODUCT,
	token.CARET:     POWER,
}

// operandStart lists tokens that can begin an operand; it decides whether a
// '%' is binary modulo or the postfix percent operator.
var operandStart = map[token.TokenType]bool{
	token.INT:    true,
	token.FLOAT:  true,
	token.STRING: true,
	token.IDENT:  true,
	token.TRUE:   true,
	token.FALSE:  true,
	token.LPAREN: true,
	token.DOLLAR: true,
	token.ERRLIT: true,
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []ParseError{}, depsSeen: map[string]bool{}}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.ERRLIT, p.parseErrorLiteral)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.NOT, p.parseNotExpression)
	p.registerPrefix(token.AND, p.parseLogicalCall)
	p.registerPrefix(token.OR, p.parseLogicalCall)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.DOLLAR, p.parseDollarReference)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.PLUS, p.parseInfixExpression)
	p.registerInfix(token.MINUS, p.parseInfixExpression)
	p.registerInfix(token.ASTERISK, p.parseInfixExpression)
	p.registerInfix(token.SLASH, p.parseInfixExpression)
	p.registerInfix(token.CARET, p.parseInfixExpression)
	p.registerInfix(token.EQ, p.parseInfixExpression)
	p.registerInfix(token.NE, p.parseInfixExpression)
	p.registerInfix(token.LT, p.parseInfixExpression)
	p.registerInfix(token.LE, p.parseInfixExpression)
	p.registerInfix(token.GT, p.parseInfixExpression)
	p.registerInfix(token.GE, p.parseInfixExpression)
	p.registerInfix(token.AMPERSAND, p.parseInfixExpression)
	p.registerInfix(token.AND, p.parseInfixExpression)
	p.registerInfix(token.OR, p.parseInfixExpression)
	p.registerInfix(token.PERCENT, p.parsePercentExpression)

	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) Errors() []ParseError { return p.errors }

// Dependencies returns the deduplicated cell and range references seen
// while parsing, in first-appearance order.
func (p *Parser) Dependencies() []cell.Ref { return p.deps }

func (p *Parser) addError(tok token.Token, msg string) {
	p.errors = append(p.errors, ParseError{Line: tok.Line, Column: tok.Column, Message: msg})
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(p.peekToken, fmt.Sprintf("expected %q, got %q", string(t), p.peekToken.Literal))
	return false
}

func (p *Parser) peekPrecedence() int {
	if p.peekToken.Type == token.PERCENT {
		// A '%' with no operand after it is postfix percent, which binds
		// tighter than '^' and the unary signs.
		saved := *p.l
		after := p.l.NextToken()
		*p.l = saved
		if !operandStart[after.Type] {
			return POSTFIX
		}
	}
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ParseFormula parses a complete formula including its leading '='.
func (p *Parser) ParseFormula() ast.Expr {
	if !p.curTokenIs(token.EQ) {
		p.addError(p.curToken, "formula must start with '='")
		return nil
	}
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if expr != nil && !p.peekTokenIs(token.EOF) {
		p.addError(p.peekToken, fmt.Sprintf("unexpected token %q", p.peekToken.Literal))
	}
	return expr
}

// Compile parses source and returns the expression tree plus the
// dependency list. The first parse error aborts compilation.
func Compile(source string) (ast.Expr, []cell.Ref, error) {
	p := New(lexer.New(source))
	expr := p.ParseFormula()
	if len(p.errors) > 0 {
		err := p.errors[0]
		return nil, nil, &err
	}
	if expr == nil {
		return nil, nil, &ParseError{Line: 1, Column: 1, Message: "empty formula"}
	}
	return expr, p.Dependencies(), nil
}

func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.addError(p.curToken, fmt.Sprintf("unexpected token %q", p.curToken.Literal))
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	if p.peekTokenIs(token.COLON) {
		return p.parseRowRange()
	}
	tok := p.curToken
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.addError(tok, fmt.Sprintf("could not parse %q as integer", tok.Literal))
		return nil
	}
	return &ast.Literal{Token: tok, Value: value.Int(v)}
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	tok := p.curToken
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.addError(tok, fmt.Sprintf("could not parse %q as number", tok.Literal))
		return nil
	}
	return &ast.Literal{Token: tok, Value: value.Num(v)}
}

func (p *Parser) parseStringLiteral() ast.Expr {
	return &ast.Literal{Token: p.curToken, Value: value.Str(p.curToken.Literal)}
}

func (p *Parser) parseBoolean() ast.Expr {
	return &ast.Literal{Token: p.curToken, Value: value.Bool(p.curTokenIs(token.TRUE))}
}

func (p *Parser) parseErrorLiteral() ast.Expr {
	kind, ok := value.KindFromLabel(p.curToken.Literal)
	if !ok {
		p.addError(p.curToken, fmt.Sprintf("unknown error literal %q", p.curToken.Literal))
		return nil
	}
	return &ast.Literal{Token: p.curToken, Value: value.NewError(kind)}
}

func (p *Parser) parsePrefixExpression() ast.Expr {
	tok := p.curToken
	op := ast.OpNeg
	if tok.Type == token.PLUS {
		op = ast.OpPlus
	}
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{Token: tok, Op: op, Operand: operand}
}

func (p *Parser) parseNotExpression() ast.Expr {
	tok := p.curToken
	p.nextToken()
	operand := p.parseExpression(NOT)
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{Token: tok, Op: ast.OpNot, Operand: operand}
}

func (p *Parser) parseGroupedExpression() ast.Expr {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

var infixOps = map[token.TokenType]ast.BinaryOp{
	token.PLUS:      ast.OpAdd,
	token.MINUS:     ast.OpSub,
	token.ASTERISK:  ast.OpMul,
	token.SLASH:     ast.OpDiv,
	token.CARET:     ast.OpPow,
	token.EQ:        ast.OpEq,
	token.NE:        ast.OpNe,
	token.LT:        ast.OpLt,
	token.LE:        ast.OpLe,
	token.GT:        ast.OpGt,
	token.GE:        ast.OpGe,
	token.AMPERSAND: ast.OpConcat,
	token.AND:       ast.OpAnd,
	token.OR:        ast.OpOr,
}

func (p *Parser) parseInfixExpression(left ast.Expr) ast.Expr {
	tok := p.curToken
	op := infixOps[tok.Type]
	precedence := p.curPrecedence()
	if tok.Type == token.CARET {
		// right-associative
		precedence--
	}
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
}

// parsePercentExpression resolves '%' as binary modulo when an operand
// follows, postfix percent otherwise.
func (p *Parser) parsePercentExpression(left ast.Expr) ast.Expr {
	tok := p.curToken
	if operandStart[p.peekToken.Type] {
		p.nextToken()
		right := p.parseExpression(PRODUCT)
		if right == nil {
			return nil
		}
		return &ast.BinaryExpr{Token: tok, Op: ast.OpMod, Left: left, Right: right}
	}
	return &ast.UnaryExpr{Token: tok, Op: ast.OpPercent, Operand: left}
}

// parseLogicalCall lets the AND/OR keywords double as function names:
// AND(...) and OR(...) route through the registry like any other call.
func (p *Parser) parseLogicalCall() ast.Expr {
	if !p.peekTokenIs(token.LPAREN) {
		p.addError(p.curToken, fmt.Sprintf("unexpected %q", p.curToken.Literal))
		return nil
	}
	return p.parseFunctionCall()
}

func (p *Parser) parseIdentifier() ast.Expr {
	lit := p.curToken.Literal

	if p.peekTokenIs(token.LPAREN) {
		return p.parseFunctionCall()
	}

	if isLetters(lit) && p.peekTokenIs(token.COLON) {
		return p.parseColumnRange()
	}

	ref := p.parseCellReference()
	if ref == nil {
		return nil
	}
	return p.maybeRange(ref)
}

func (p *Parser) parseFunctionCall() ast.Expr {
	call := &ast.FunctionCall{Token: p.curToken, Name: strings.ToUpper(p.curToken.Literal)}
	p.nextToken() // '('

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return call
	}

	p.nextToken()
	arg := p.parseExpression(LOWEST)
	if arg == nil {
		return nil
	}
	call.Args = append(call.Args, arg)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}

func (p *Parser) recordDep(ref cell.Ref) {
	key := ref.Key()
	if p.depsSeen[key] {
		return
	}
	p.depsSeen[key] = true
	p.deps = append(p.deps, ref)
}

// maybeRange extends a cell reference into a range when a ':' follows.
// A relative reference cannot anchor a range.
func (p *Parser) maybeRange(left *ast.CellRef) ast.Expr {
	if !p.peekTokenIs(token.COLON) {
		if !left.Relative() {
			p.recordDep(cell.CellRef(left.Addr))
		}
		return left
	}
	if left.Relative() {
		p.addError(p.peekToken, "range endpoints must be absolute references")
		return nil
	}
	p.nextToken() // ':'
	p.nextToken()

	var right *ast.CellRef
	switch p.curToken.Type {
	case token.IDENT:
		right = p.parseCellReference()
	case token.DOLLAR:
		right = p.parseDollarCell()
	default:
		p.addError(p.curToken, fmt.Sprintf("expected cell reference after ':', got %q", p.curToken.Literal))
		return nil
	}
	if right == nil {
		return nil
	}
	if right.Relative() {
		p.addError(p.curToken, "range endpoints must be absolute references")
		return nil
	}

	r := cell.NewRange(left.Addr, right.Addr).Normalized()
	p.recordDep(cell.RangeRef(r))
	return &ast.RangeRef{Token: left.Token, Range: r}
}

// parseColumnRange handles full-column ranges such as A:C.
func (p *Parser) parseColumnRange() ast.Expr {
	tok := p.curToken
	startCol, err := cell.ColumnIndex(tok.Literal)
	if err != nil {
		p.addError(tok, err.Error())
		return nil
	}
	p.nextToken() // ':'
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	if !isLetters(p.curToken.Literal) {
		p.addError(p.curToken, fmt.Sprintf("expected column letters, got %q", p.curToken.Literal))
		return nil
	}
	endCol, err := cell.ColumnIndex(p.curToken.Literal)
	if err != nil {
		p.addError(p.curToken, err.Error())
		return nil
	}
	r := cell.NewRange(
		cell.NewAddress(0, startCol),
		cell.NewAddress(cell.MaxRows-1, endCol),
	).Normalized()
	p.recordDep(cell.RangeRef(r))
	return &ast.RangeRef{Token: tok, Range: r}
}

// parseRowRange handles full-row ranges such as 1:3.
func (p *Parser) parseRowRange() ast.Expr {
	tok := p.curToken
	startRow, err := strconv.ParseUint(tok.Literal, 10, 32)
	if err != nil || startRow == 0 {
		p.addError(tok, fmt.Sprintf("invalid row number %q", tok.Literal))
		return nil
	}
	p.nextToken() // ':'
	if !p.expectPeek(token.INT) {
		return nil
	}
	endRow, err := strconv.ParseUint(p.curToken.Literal, 10, 32)
	if err != nil || endRow == 0 {
		p.addError(p.curToken, fmt.Sprintf("invalid row number %q", p.curToken.Literal))
		return nil
	}
	r := cell.NewRange(
		cell.NewAddress(uint32(startRow-1), 0),
		cell.NewAddress(uint32(endRow-1), cell.MaxCols-1),
	).Normalized()
	p.recordDep(cell.RangeRef(r))
	return &ast.RangeRef{Token: tok, Range: r}
}

// parseDollarReference parses a '$'-prefixed A1 reference in prefix position.
func (p *Parser) parseDollarReference() ast.Expr {
	ref := p.parseDollarCell()
	if ref == nil {
		return nil
	}
	return p.maybeRange(ref)
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

func splitA1(s string) (letters, digits string, ok bool) {
	i := 0
	for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
		i++
	}
	if i == 0 {
		return "", "", false
	}
	letters = s[:i]
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j != len(s) || j == i {
		return "", "", false
	}
	return letters, s[i:], true
}
