// Package scope rewrites generated method bodies so that references to
// scoped variables, such as the layers of a generated nn.Module, use the
// qualified self.name form.
//
//	rw := scope.New(regexp.MustCompile(`^layer\d+$`))
//	res, err := rw.Rewrite("x = layer1(x)\nreturn layer2(x)", []string{"layer1", "layer2"})
//	// res.Body == "x = self.layer1(x)\nreturn self.layer2(x)"
//
// Unqualified names that match the pattern but are not defined are left
// untouched and reported in Result.Free; callers decide whether to warn.
// Names inside f-string interpolations are not rewritten.
package scope
