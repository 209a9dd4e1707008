package term

// FreeVars returns the set of free variables in t, used to pick fresh
// names during eta-expansion and unification.
func FreeVars(t Term) map[Name]bool {
	out := make(map[Name]bool)
	freeVars(t, out)
	return out
}

func freeVars(t Term, out map[Name]bool) {
	switch n := t.(type) {
	case Var:
		out[n.Name] = true
	case Hole, Universe, CubeUnit, CubeUnitStar, Cube, Cube2, Cube2_0, Cube2_1,
		Tope, TopeTop, TopeBottom, RecBottom:
		// no children
	case TypedTerm:
		freeVars(n.Term, out)
		freeVars(n.Type, out)
	case Pi:
		freeVars(n.Family, out)
	case Sigma:
		freeVars(n.Family, out)
	case Lambda:
		if n.A != nil {
			freeVars(n.A, out)
		}
		if n.Phi != nil {
			freeVars(n.Phi, out)
		}
		inner := make(map[Name]bool)
		freeVars(n.Body, inner)
		delete(inner, n.Var)
		for k := range inner {
			out[k] = true
		}
	case App:
		freeVars(n.Fun, out)
		freeVars(n.Arg, out)
	case Pair:
		freeVars(n.First, out)
		freeVars(n.Second, out)
	case First:
		freeVars(n.Pair, out)
	case Second:
		freeVars(n.Pair, out)
	case IdType:
		freeVars(n.A, out)
		freeVars(n.X, out)
		freeVars(n.Y, out)
	case Refl:
		if n.A != nil {
			freeVars(n.A, out)
		}
		freeVars(n.X, out)
	case IdJ:
		freeVars(n.A, out)
		freeVars(n.A0, out)
		freeVars(n.C, out)
		freeVars(n.D, out)
		freeVars(n.X, out)
		freeVars(n.P, out)
	case CubeProd:
		freeVars(n.I, out)
		freeVars(n.J, out)
	case TopeOr:
		freeVars(n.Left, out)
		freeVars(n.Right, out)
	case TopeAnd:
		freeVars(n.Left, out)
		freeVars(n.Right, out)
	case TopeEQ:
		freeVars(n.Left, out)
		freeVars(n.Right, out)
	case TopeLEQ:
		freeVars(n.Left, out)
		freeVars(n.Right, out)
	case RecOr:
		freeVars(n.Psi, out)
		freeVars(n.Phi, out)
		freeVars(n.A, out)
		freeVars(n.B, out)
	case ExtensionType:
		freeVars(n.I, out)
		inner := make(map[Name]bool)
		freeVars(n.Psi, inner)
		freeVars(n.A, inner)
		freeVars(n.Phi, inner)
		freeVars(n.A0, inner)
		delete(inner, n.Var)
		for k := range inner {
			out[k] = true
		}
	}
}

// Rename replaces free occurrences of x by y in t, refreshing any binder
// in t that would otherwise capture y.
func Rename(x, y Name, t Term) Term {
	return Subst(t, x, Var{Name: y})
}

// Subst replaces free occurrences of x in t by the term v, refreshing
// any binder that would capture a free variable of v. Holes share the
// identifier space with variables, so a Hole named x is replaced too.
func Subst(t Term, x Name, v Term) Term {
	switch n := t.(type) {
	case Var:
		if n.Name == x {
			return v
		}
		return n
	case Hole:
		if n.Name == x {
			return v
		}
		return n
	case Universe, CubeUnit, CubeUnitStar, Cube, Cube2, Cube2_0, Cube2_1,
		Tope, TopeTop, TopeBottom, RecBottom:
		return n
	case TypedTerm:
		return TypedTerm{Term: Subst(n.Term, x, v), Type: Subst(n.Type, x, v)}
	case Pi:
		return Pi{Family: Subst(n.Family, x, v)}
	case Sigma:
		return Sigma{Family: Subst(n.Family, x, v)}
	case Lambda:
		return substBinder(n, x, v)
	case App:
		return App{Fun: Subst(n.Fun, x, v), Arg: Subst(n.Arg, x, v)}
	case Pair:
		return Pair{First: Subst(n.First, x, v), Second: Subst(n.Second, x, v)}
	case First:
		return First{Pair: Subst(n.Pair, x, v)}
	case Second:
		return Second{Pair: Subst(n.Pair, x, v)}
	case IdType:
		return IdType{A: Subst(n.A, x, v), X: Subst(n.X, x, v), Y: Subst(n.Y, x, v)}
	case Refl:
		var a Term
		if n.A != nil {
			a = Subst(n.A, x, v)
		}
		return Refl{A: a, X: Subst(n.X, x, v)}
	case IdJ:
		return IdJ{
			A:  Subst(n.A, x, v),
			A0: Subst(n.A0, x, v),
			C:  Subst(n.C, x, v),
			D:  Subst(n.D, x, v),
			X:  Subst(n.X, x, v),
			P:  Subst(n.P, x, v),
		}
	case CubeProd:
		return CubeProd{I: Subst(n.I, x, v), J: Subst(n.J, x, v)}
	case TopeOr:
		return TopeOr{Left: Subst(n.Left, x, v), Right: Subst(n.Right, x, v)}
	case TopeAnd:
		return TopeAnd{Left: Subst(n.Left, x, v), Right: Subst(n.Right, x, v)}
	case TopeEQ:
		return TopeEQ{Left: Subst(n.Left, x, v), Right: Subst(n.Right, x, v)}
	case TopeLEQ:
		return TopeLEQ{Left: Subst(n.Left, x, v), Right: Subst(n.Right, x, v)}
	case RecOr:
		return RecOr{
			Psi: Subst(n.Psi, x, v),
			Phi: Subst(n.Phi, x, v),
			A:   Subst(n.A, x, v),
			B:   Subst(n.B, x, v),
		}
	case ExtensionType:
		return substExtension(n, x, v)
	}
	return t
}

// substBinder substitutes into a Lambda, refreshing n.Var if it would
// capture a free variable of v.
func substBinder(n Lambda, x Name, v Term) Term {
	if n.Var == x {
		// x is shadowed; only the annotation (outside the binder) substitutes.
		var a Term
		if n.A != nil {
			a = Subst(n.A, x, v)
		}
		return Lambda{Var: n.Var, A: a, Phi: n.Phi, Body: n.Body}
	}
	bound := n.Var
	body := n.Body
	phi := n.Phi
	vfree := FreeVars(v)
	if vfree[bound] {
		used := FreeVars(body)
		if phi != nil {
			for k := range FreeVars(phi) {
				used[k] = true
			}
		}
		for k := range vfree {
			used[k] = true
		}
		fresh := Refresh(bound, used)
		body = Rename(bound, fresh, body)
		if phi != nil {
			phi = Rename(bound, fresh, phi)
		}
		bound = fresh
	}
	var a Term
	if n.A != nil {
		a = Subst(n.A, x, v)
	}
	var newPhi Term
	if phi != nil {
		newPhi = Subst(phi, x, v)
	}
	return Lambda{Var: bound, A: a, Phi: newPhi, Body: Subst(body, x, v)}
}

func substExtension(n ExtensionType, x Name, v Term) Term {
	i := Subst(n.I, x, v)
	if n.Var == x {
		return ExtensionType{Var: n.Var, I: i, Psi: n.Psi, A: n.A, Phi: n.Phi, A0: n.A0}
	}
	bound := n.Var
	psi, a, phi, a0 := n.Psi, n.A, n.Phi, n.A0
	vfree := FreeVars(v)
	if vfree[bound] {
		used := FreeVars(psi)
		for k := range FreeVars(a) {
			used[k] = true
		}
		for k := range FreeVars(phi) {
			used[k] = true
		}
		for k := range FreeVars(a0) {
			used[k] = true
		}
		for k := range vfree {
			used[k] = true
		}
		fresh := Refresh(bound, used)
		psi = Rename(bound, fresh, psi)
		a = Rename(bound, fresh, a)
		phi = Rename(bound, fresh, phi)
		a0 = Rename(bound, fresh, a0)
		bound = fresh
	}
	return ExtensionType{
		Var: bound,
		I:   i,
		Psi: Subst(psi, x, v),
		A:   Subst(a, x, v),
		Phi: Subst(phi, x, v),
		A0:  Subst(a0, x, v),
	}
}

// Refresh produces a name disjoint from used, deterministically, by
// incrementing the primed-suffix counter until disjoint.
func Refresh(n Name, used map[Name]bool) Name {
	cand := n
	for used[cand] {
		cand = cand.next()
	}
	return cand
}
