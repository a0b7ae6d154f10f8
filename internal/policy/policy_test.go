package policy

import "testing"

func TestCanManageCatalog(t *testing.T) {
	if CanManageCatalog(Actor{UserID: "u1"}) {
		t.Fatal("non-staff must not manage the catalogue")
	}
	if !CanManageCatalog(Actor{UserID: "u1", IsStaff: true}) {
		t.Fatal("staff must manage the catalogue")
	}
}

func TestCanEditReview(t *testing.T) {
	if !CanEditReview(Actor{UserID: "u1"}, "u1") {
		t.Fatal("author must edit their own review")
	}
	if CanEditReview(Actor{UserID: "u2"}, "u1") {
		t.Fatal("others must not edit the review")
	}
	if CanEditReview(Actor{UserID: "u2", IsStaff: true}, "u1") {
		t.Fatal("staff gain no edit rights")
	}
	if CanEditReview(Actor{}, "") {
		t.Fatal("anonymous actors never match an empty author")
	}
}

func TestCanDeleteReview(t *testing.T) {
	if !CanDeleteReview(Actor{UserID: "u1"}, "u1") {
		t.Fatal("author must delete their own review")
	}
	if !CanDeleteReview(Actor{UserID: "u2", IsStaff: true}, "u1") {
		t.Fatal("staff must delete any review")
	}
	if CanDeleteReview(Actor{UserID: "u2"}, "u1") {
		t.Fatal("others must not delete the review")
	}
}

func TestUserRecordAccess(t *testing.T) {
	if !CanReadUser(Actor{UserID: "u1"}, "u1") {
		t.Fatal("users must read themselves")
	}
	if !CanReadUser(Actor{UserID: "u2", IsStaff: true}, "u1") {
		t.Fatal("staff must read any user")
	}
	if CanReadUser(Actor{UserID: "u2"}, "u1") {
		t.Fatal("others must not read the user")
	}

	if !CanUpdateUser(Actor{UserID: "u1"}, "u1") {
		t.Fatal("users must update themselves")
	}
	if CanUpdateUser(Actor{UserID: "u2", IsStaff: true}, "u1") {
		t.Fatal("staff must not update other users")
	}

	if !CanDeleteUser(Actor{UserID: "u1"}, "u1") {
		t.Fatal("users must delete themselves")
	}
	if !CanDeleteUser(Actor{UserID: "u2", IsStaff: true}, "u1") {
		t.Fatal("staff must delete any user")
	}
	if CanDeleteUser(Actor{UserID: "u2"}, "u1") {
		t.Fatal("others must not delete the user")
	}
}

func TestCanSearchMetadata(t *testing.T) {
	if CanSearchMetadata(Actor{UserID: "u1"}) {
		t.Fatal("non-staff must not search the metadata provider")
	}
	if !CanSearchMetadata(Actor{UserID: "u1", IsStaff: true}) {
		t.Fatal("staff must search the metadata provider")
	}
}
