package linker

import "github.com/real-xidaozu/llvm-project/pkg/utils"

// ReadInputFiles walks the positional arguments left after option
// parsing — plain .o paths and -lfoo library references — and turns
// each into one or more ObjectFiles in ctx.Objs, or, for a shared
// object, a SharedFile in ctx.DSOs.
func ReadInputFiles(ctx *Context, remaining []string) {
	for _, arg := range remaining {
		var ok bool
		if arg, ok = utils.RemovePrefix(arg, "-l"); ok {
			ReadFile(ctx, FindLibrary(ctx, arg))
		} else {
			ReadFile(ctx, MustNewFile(arg))
		}
	}
}

func ReadFile(ctx *Context, file *File) {
	ft := GetFileType(file.Contents)
	switch ft {
	case FileTypeObject:
		ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, file, false))
	case FileTypeArchive:
		for _, child := range ReadArchiveMembers(file) {
			utils.Assert(GetFileType(child.Contents) == FileTypeObject)
			ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, child, true))
		}
	case FileTypeShared:
		CheckFileCompatibility(ctx, file)
		so := NewSharedFile(file)
		ctx.DSOs = append(ctx.DSOs, so)
		ctx.Args.NeededLibs = append(ctx.Args.NeededLibs, so.SoName)
	default:
		utils.Fatal("unknown file type")
	}
}

// CreateObjectFile parses file into an ObjectFile. A .o named directly
// on the command line starts out alive (it's included unconditionally);
// one pulled from an archive starts dead and only becomes alive if
// something resolves a reference into it.
func CreateObjectFile(ctx *Context, file *File, inLib bool) *ObjectFile {
	CheckFileCompatibility(ctx, file)
	obj := NewObjectFile(file, !inLib)
	obj.Parse(ctx)
	return obj
}

// CheckFileCompatibility enforces that every input object targets the
// same architecture, the way GNU ld's BFD target matching does. The
// first object file read fixes ctx.Args.Emulation when the caller
// didn't pin one with an -m-equivalent flag; every subsequent object
// must match it or the link is rejected immediately.
func CheckFileCompatibility(ctx *Context, file *File) {
	mt := GetMachineTypeFromContents(file.Contents)
	if mt == MachineTypeNone {
		utils.Fatal(file.Name + ": unrecognized or unsupported ELF machine type")
	}
	if ctx.Args.Emulation == MachineTypeNone {
		ctx.Args.Emulation = mt
		ctx.Target = NewTargetForMachine(mt)
		return
	}
	if ctx.Args.Emulation != mt {
		utils.Fatal(file.Name + ": incompatible file machine type " + mt.String() +
			", expected " + ctx.Args.Emulation.String())
	}
}
