package cli

// allCommands returns every command in help order.
func allCommands(a *app) commandSet {
	return commandSet{
		InitCmd(a),
		DraftCmd(a),
		InsertCmd(a),
		EditCmd(a),
		UpdateCmd(a),
		DeleteCmd(a),
		ShowCmd(a),
		LsCmd(a),
		RelinkCmd(a),
		PendingCmd(a),
		HashCmd(a),
		PrintConfigCmd(a),
		ShellCmd(a),
	}
}
